package seed

import "talentflow/internal/domain"

var (
	firstNames = []string{
		"Aisha", "Ben", "Cara", "David", "Elena", "Finn", "Gia", "Hiro", "Ines", "Juan",
		"Kira", "Leo", "Mia", "Niko", "Olivia", "Pavi", "Quinn", "Ravi", "Sara", "Tom",
	}
	lastNames = []string{
		"Chen", "Smith", "Rodriguez", "Kumar", "Al-Jamil", "Goldstein", "Dubois", "Lee",
		"Walker", "Kim", "O'Brien", "Patel", "Garcia", "Jones", "Yamamoto", "Singh",
	}
	jobTitles = []string{
		"Software Engineer", "Product Manager", "UX/UI Designer", "Data Scientist",
		"Marketing Lead", "DevOps Engineer", "Frontend Developer", "Backend Developer",
		"Full Stack Engineer", "QA Tester", "Product Owner", "Scrum Master",
	}
	tagPool = []string{
		"React", "Node.js", "Python", "Go", "AWS", "Remote", "Full-time", "Contract",
		"JavaScript", "TypeScript", "SQL", "NoSQL", "Figma", "AI/ML",
	}
)

var descriptionTemplates = []func(role, tagA, tagB string) string{
	func(role, tagA, tagB string) string {
		return "We are seeking a passionate " + role + ` to join our dynamic team.

Key Responsibilities:
- Design and implement scalable, high-performance applications.
- Collaborate with cross-functional teams to define and ship new features.
- Write clean, maintainable, and well-tested code.

Qualifications:
- 3+ years of experience in a similar role.
- Proficiency in ` + tagA + " and " + tagB + `.
- Strong problem-solving skills.`
	},
	func(string, string, string) string {
		return `This is a fantastic opportunity for a mid-level developer looking to take the next step in their career.
You will be responsible for the entire product lifecycle, from concept to deployment.

We value teamwork, innovation, and a commitment to quality.`
	},
	func(_, tagA, _ string) string {
		return `Join our fast-growing startup! We're looking for a self-starter who is comfortable in a fast-paced environment.
This role is 100% remote.

Requirements:
- Proven experience with ` + tagA + `.
- Excellent communication skills.
- A portfolio of past projects is highly desirable.`
	},
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// assessmentStructures returns the fixed assessments bound to the first
// three jobs, titled after them.
func assessmentStructures(jobs []domain.Job) []domain.Assessment {
	q := func(id, label string) domain.QuestionBase {
		return domain.QuestionBase{ID: id, Label: label}
	}
	return []domain.Assessment{
		{
			JobID: jobs[0].ID,
			Structure: &domain.Structure{
				Title: "Assessment for " + jobs[0].Title,
				Sections: []domain.Section{{
					ID:    "s1",
					Title: "Basic JavaScript",
					Questions: domain.Questions{
						domain.SingleChoice{QuestionBase: q("q1", "What is `typeof null`?"), Options: []string{`"object"`, `"null"`, `"undefined"`}, Required: true},
						domain.MultiChoice{QuestionBase: q("q2", "Which are valid ways to declare a variable?"), Options: []string{"var", "let", "const", "def"}, Required: true},
						domain.ShortText{QuestionBase: q("q3", "What does CSS stand for?"), Required: true, MaxLength: intPtr(50)},
					},
				}},
			},
		},
		{
			JobID: jobs[1].ID,
			Structure: &domain.Structure{
				Title: "Assessment for " + jobs[1].Title,
				Sections: []domain.Section{{
					ID:    "s1",
					Title: "Product Philosophy",
					Questions: domain.Questions{
						domain.SingleChoice{QuestionBase: q("q1", `Do you agree that "Done is better than perfect"?`), Options: []string{"Yes", "No", "It depends"}, Required: true},
						domain.LongText{QuestionBase: q("q2", "Describe a product you love and why."), Required: true},
						domain.ShortText{QuestionBase: domain.QuestionBase{
							ID:        "q3",
							Label:     "What is your favorite metric?",
							DependsOn: &domain.Condition{QuestionID: "q1", Value: "Yes"},
						}},
					},
				}},
			},
		},
		{
			JobID: jobs[2].ID,
			Structure: &domain.Structure{
				Title: "Assessment for " + jobs[2].Title,
				Sections: []domain.Section{{
					ID:    "s1",
					Title: "Scenario",
					Questions: domain.Questions{
						domain.Numeric{QuestionBase: q("q1", "How many years of React experience do you have?"), Required: true, Min: floatPtr(0), Max: floatPtr(20)},
						domain.FileUpload{QuestionBase: q("q2", "Please upload your resume.")},
					},
				}},
			},
		},
	}
}
