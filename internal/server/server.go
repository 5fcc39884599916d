package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"talentflow/internal/domain"
	"talentflow/internal/engine"
	"talentflow/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Log      *slog.Logger
}

// apiError is the {message} envelope every failure is reported with.
type apiError struct {
	status  int
	Message string            `json:"message" example:"Failed to update candidate stage"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Message }

// New returns an HTTP handler exposing the TalentFlow API.
func New(cfg Config) (http.Handler, error) {
	basePath := strings.TrimSuffix(cfg.BasePath, "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	logger := cfg.Log
	if logger == nil {
		logger = slog.Default()
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, msg)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			// request validation is a client error like any other
			status = http.StatusBadRequest
		}
		e := &apiError{status: status, Message: msg}
		for _, err := range errs {
			var detail *huma.ErrorDetail
			if errors.As(err, &detail) {
				if e.Fields == nil {
					e.Fields = map[string]string{}
				}
				e.Fields[detail.Location] = detail.Message
			}
		}
		return e
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.Recoverer, requestLogger(logger))
	hcfg := huma.DefaultConfig("TalentFlow API", "0.1.0")
	hcfg.OpenAPIPath = ""
	hcfg.DocsPath = ""
	hcfg.CreateHooks = nil
	api := humachi.New(router, hcfg)
	var group huma.API = api
	if basePath != "" {
		group = huma.NewGroup(api, basePath)
	}

	registerHealth(group)
	registerJobs(group, cfg.Engine)
	registerCandidates(group, cfg.Engine)
	registerAssessments(group, cfg.Engine)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func newAPIError(status int, message string) huma.StatusError {
	return &apiError{status: status, Message: message}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var verr *engine.ValidationError
	if errors.As(err, &verr) {
		return &apiError{status: http.StatusBadRequest, Message: verr.Error(), Fields: verr.Fields}
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, err.Error())
	}
	var serr *engine.ServiceError
	if errors.As(err, &serr) {
		return newAPIError(serr.Status, serr.Message)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newAPIError(http.StatusServiceUnavailable, err.Error())
	}
	return newAPIError(http.StatusInternalServerError, err.Error())
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var (
		once sync.Once
		spec []byte
	)
	specPath := path.Join("/", basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			spec, _ = json.Marshal(oas)
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	if oas.Components != nil && oas.Components.Schemas != nil {
		oas.Components.Schemas.Schema(reflect.TypeOf(apiError{}), true, "ApiError")
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Patch,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type jobPath struct {
	ID string `path:"id"`
}

func registerJobs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/jobs",
		Summary:     "List jobs",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Page     int    `query:"page" minimum:"0" default:"1"`
		PageSize int    `query:"pageSize" minimum:"0" default:"10"`
		Status   string `query:"status"`
		Search   string `query:"search"`
		Tags     string `query:"tags" doc:"Comma separated; every tag must match"`
	}) (*struct {
		Body engine.JobPage `json:"body"`
	}, error) {
		page, err := e.ListJobs(ctx, engine.JobFilter{
			Page:     input.Page,
			PageSize: input.PageSize,
			Status:   input.Status,
			Search:   input.Search,
			Tags:     splitCSV(input.Tags),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.JobPage `json:"body"`
		}{Body: page}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "job-titles",
		Method:      http.MethodGet,
		Path:        "/jobs/titles",
		Summary:     "Job ids and titles in board order",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.JobTitle `json:"body"`
	}, error) {
		titles, err := e.JobTitles(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.JobTitle `json:"body"`
		}{Body: titles}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "job-tags",
		Method:      http.MethodGet,
		Path:        "/jobs/tags",
		Summary:     "Distinct job tags",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []string `json:"body"`
	}, error) {
		tags, err := e.UniqueTags(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []string `json:"body"`
		}{Body: tags}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "job-stats",
		Method:      http.MethodGet,
		Path:        "/jobs/stats",
		Summary:     "Total and active job counts",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.JobStats `json:"body"`
	}, error) {
		stats, err := e.Stats(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.JobStats `json:"body"`
		}{Body: stats}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/jobs/{id}",
		Summary:     "Get job",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *jobPath) (*struct {
		Body domain.Job `json:"body"`
	}, error) {
		j, err := e.GetJob(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Job `json:"body"`
		}{Body: j}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-job",
		Method:        http.MethodPost,
		Path:          "/jobs",
		Summary:       "Create job",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body CreateJobRequest `json:"body"`
	}) (*struct {
		Body domain.Job `json:"body"`
	}, error) {
		j, err := e.CreateJob(ctx, engine.JobInput{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Slug:        input.Body.Slug,
			Tags:        input.Body.Tags,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Job `json:"body"`
		}{Body: j}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-job",
		Method:      http.MethodPatch,
		Path:        "/jobs/{id}",
		Summary:     "Update job fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body UpdateJobRequest `json:"body"`
	}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		applied, err := e.UpdateJob(ctx, input.ID, input.Body.patch())
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: updateEcho(input.ID, applied)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reorder-job",
		Method:      http.MethodPatch,
		Path:        "/jobs/{id}/reorder",
		Summary:     "Move a job to another board position",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body ReorderRequest `json:"body"`
	}) (*struct {
		Body SuccessResponse `json:"body"`
	}, error) {
		if err := e.ReorderJob(ctx, input.ID, input.Body.FromOrder, input.Body.ToOrder); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SuccessResponse `json:"body"`
		}{Body: SuccessResponse{Success: true}}, nil
	})
}

type candidatePath struct {
	ID string `path:"id"`
}

func registerCandidates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-candidates",
		Method:      http.MethodGet,
		Path:        "/candidates",
		Summary:     "List candidates",
	}, func(ctx context.Context, input *struct {
		Stage  string `query:"stage"`
		Search string `query:"search"`
	}) (*struct {
		Body CandidateListResponse `json:"body"`
	}, error) {
		list, err := e.ListCandidates(ctx, engine.CandidateFilter{Stage: input.Stage, Search: input.Search})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CandidateListResponse `json:"body"`
		}{Body: CandidateListResponse(list)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-job-candidates",
		Method:      http.MethodGet,
		Path:        "/candidates/job/{jobId}",
		Summary:     "List candidates for a job",
	}, func(ctx context.Context, input *struct {
		JobID string `path:"jobId"`
	}) (*struct {
		Body CandidateListResponse `json:"body"`
	}, error) {
		list, err := e.ListCandidatesByJob(ctx, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CandidateListResponse `json:"body"`
		}{Body: CandidateListResponse(list)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-candidate",
		Method:      http.MethodGet,
		Path:        "/candidates/{id}",
		Summary:     "Get candidate",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *candidatePath) (*struct {
		Body domain.Candidate `json:"body"`
	}, error) {
		c, err := e.GetCandidate(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Candidate `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-candidate-stage",
		Method:      http.MethodPatch,
		Path:        "/candidates/{id}/stage",
		Summary:     "Move candidate to a stage",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body StageRequest `json:"body"`
	}) (*struct {
		Body domain.Candidate `json:"body"`
	}, error) {
		c, err := e.UpdateCandidateStage(ctx, input.ID, input.Body.Stage)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Candidate `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "candidate-timeline",
		Method:      http.MethodGet,
		Path:        "/candidates/{id}/timeline",
		Summary:     "Candidate timeline",
	}, func(ctx context.Context, input *candidatePath) (*struct {
		Body []domain.TimelineEvent `json:"body"`
	}, error) {
		events, err := e.Timeline(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.TimelineEvent `json:"body"`
		}{Body: events}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-candidate-notes",
		Method:      http.MethodGet,
		Path:        "/candidates/{id}/notes",
		Summary:     "Candidate notes",
	}, func(ctx context.Context, input *candidatePath) (*struct {
		Body NotesResponse `json:"body"`
	}, error) {
		n, err := e.Notes(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body NotesResponse `json:"body"`
		}{Body: NotesResponse{Content: n.Content}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-candidate-notes",
		Method:      http.MethodPut,
		Path:        "/candidates/{id}/notes",
		Summary:     "Replace candidate notes",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		ID   string       `path:"id"`
		Body NotesRequest `json:"body"`
	}) (*struct {
		Body SuccessResponse `json:"body"`
	}, error) {
		if err := e.UpdateNotes(ctx, input.ID, input.Body.Content); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SuccessResponse `json:"body"`
		}{Body: SuccessResponse{Success: true}}, nil
	})
}

type assessmentPath struct {
	JobID string `path:"jobId"`
}

func registerAssessments(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-assessment",
		Method:      http.MethodGet,
		Path:        "/assessments/{jobId}",
		Summary:     "Get a job's assessment",
	}, func(ctx context.Context, input *assessmentPath) (*struct {
		Body AssessmentResponse `json:"body"`
	}, error) {
		a, err := e.GetAssessment(ctx, input.JobID)
		if err != nil {
			return nil, handleError(err)
		}
		structure, err := structureMap(a.Structure)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body AssessmentResponse `json:"body"`
		}{Body: AssessmentResponse{JobID: input.JobID, Structure: structure}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-assessment",
		Method:      http.MethodPut,
		Path:        "/assessments/{jobId}",
		Summary:     "Replace a job's assessment",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		JobID string                `path:"jobId"`
		Body  SaveAssessmentRequest `json:"body"`
	}) (*struct {
		Body SuccessResponse `json:"body"`
	}, error) {
		raw, err := json.Marshal(input.Body.Structure)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "invalid structure")
		}
		if _, err := e.SaveAssessment(ctx, input.JobID, raw); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SuccessResponse `json:"body"`
		}{Body: SuccessResponse{Success: true}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "submit-assessment",
		Method:      http.MethodPost,
		Path:        "/assessments/{jobId}/submit",
		Summary:     "Submit assessment answers",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		JobID string                  `path:"jobId"`
		Body  SubmitAssessmentRequest `json:"body"`
	}) (*struct {
		Body SubmitResponse `json:"body"`
	}, error) {
		resp, err := e.SubmitAssessment(ctx, input.JobID, input.Body.CandidateID, input.Body.Responses)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SubmitResponse `json:"body"`
		}{Body: SubmitResponse{Success: true, ID: resp.ID}}, nil
	})
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return domain.NormalizeTags(strings.Split(s, ","))
}
