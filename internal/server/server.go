package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"govline/internal/domain"
	"govline/internal/engine"
	"govline/internal/ledger"
	"govline/internal/repo"
	"govline/internal/scan"
	"govline/internal/textgen"
	"govline/internal/workflow"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"precondition_failed"`
	Message string         `json:"message" example:"record cannot be signed: validation did not pass"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the machine-readable error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Govline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Govline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerRequests(group, cfg.Engine)
	registerChat(group, cfg.Engine)
	registerCheck(group, cfg.Engine)
	registerScan(group, cfg.Engine)
	registerLedger(group, cfg.Engine)
	registerPatterns(group, cfg.Engine)
	registerWorkflows(group, cfg.Engine)
	registerEvents(group, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps governance errors to the machine-readable envelope.
// NotFound, Conflict, Precondition and Configuration errors surface
// verbatim: they mean an invariant was about to be violated.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var conflict ledger.ConflictError
	if errors.As(err, &conflict) {
		return newAPIError(http.StatusConflict, "conflict", err.Error(), map[string]any{"id": conflict.ID})
	}
	var precondition ledger.PreconditionError
	if errors.As(err, &precondition) {
		return newAPIError(http.StatusUnprocessableEntity, "precondition_failed", err.Error(), map[string]any{"id": precondition.ID})
	}
	var configuration workflow.ConfigurationError
	if errors.As(err, &configuration) {
		return newAPIError(http.StatusInternalServerError, "configuration_error", err.Error(), map[string]any{"agent_id": configuration.AgentID})
	}
	var timeout textgen.TimeoutError
	if errors.As(err, &timeout) {
		return newAPIError(http.StatusGatewayTimeout, "upstream_timeout", err.Error(), nil)
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "transition"):
		return newAPIError(http.StatusConflict, "invalid_transition", msg, nil)
	case strings.Contains(lowered, "cannot be reviewed"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusGatewayTimeout:
		return "upstream_timeout"
	default:
		return "internal_error"
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

func registerStatus(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Pipeline status",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		counts, err := e.Repo.CountRequestsByStatus(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		unfixed, err := e.Learning.FindUnfixed(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{
			"pipeline_id":      e.Config.Pipeline.ID,
			"request_counts":   counts,
			"unfixed_patterns": len(unfixed),
		}}, nil
	})
}

func registerRequests(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-request",
		Method:        http.MethodPost,
		Path:          "/requests",
		Summary:       "Submit a change request",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateRequestBody `json:"body"`
	}) (*struct {
		Body RequestResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		cr, created, err := e.SubmitRequest(ctx, engine.SubmitOptions{
			RequesterAgent: input.Body.RequesterAgent,
			Type:           input.Body.Type,
			Title:          input.Body.Title,
			Description:    input.Body.Description,
			Justification:  input.Body.Justification,
			Priority:       input.Body.Priority,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RequestResponse `json:"body"`
		}{Body: RequestResponse{ChangeRequest: cr, Created: created}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-requests",
		Method:      http.MethodGet,
		Path:        "/requests",
		Summary:     "List change requests",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"pending,under-review,approved,rejected,applied" required:"false"`
		Agent  string `query:"agent" required:"false"`
	}) (*struct {
		Body []domain.ChangeRequest `json:"body"`
	}, error) {
		items, err := e.Repo.ListRequests(ctx, input.Status, input.Agent)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ChangeRequest `json:"body"`
		}{Body: items}, nil
	})

	type requestPath struct {
		RequestID string `path:"request_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-request",
		Method:      http.MethodGet,
		Path:        "/requests/{request_id}",
		Summary:     "Get a change request",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *requestPath) (*struct {
		Body domain.ChangeRequest `json:"body"`
	}, error) {
		cr, err := e.Repo.GetRequest(ctx, input.RequestID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChangeRequest `json:"body"`
		}{Body: cr}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "review-request",
		Method:      http.MethodPost,
		Path:        "/requests/{request_id}/review",
		Summary:     "Run the approval authority over a request",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *requestPath) (*struct {
		Body domain.ReviewDecision `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		decision, err := e.ReviewRequest(ctx, input.RequestID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ReviewDecision `json:"body"`
		}{Body: decision}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "resubmit-request",
		Method:      http.MethodPost,
		Path:        "/requests/{request_id}/resubmit",
		Summary:     "Resubmit a rejected request after revision",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *requestPath) (*struct {
		Body domain.ChangeRequest `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ResubmitRequest(ctx, input.RequestID, actorID); err != nil {
			return nil, handleError(err)
		}
		cr, err := e.Repo.GetRequest(ctx, input.RequestID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChangeRequest `json:"body"`
		}{Body: cr}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "approve-request",
		Method:      http.MethodPost,
		Path:        "/requests/{request_id}/approve",
		Summary:     "Finalize multi-area sign-off",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *requestPath) (*struct {
		Body domain.ChangeRequest `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.ApproveMultiSign(ctx, input.RequestID, actorID); err != nil {
			return nil, handleError(err)
		}
		cr, err := e.Repo.GetRequest(ctx, input.RequestID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChangeRequest `json:"body"`
		}{Body: cr}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "apply-request",
		Method:      http.MethodPost,
		Path:        "/requests/{request_id}/apply",
		Summary:     "Mark an approved request as applied",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *requestPath) (*struct {
		Body domain.ChangeRequest `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.MarkApplied(ctx, input.RequestID, actorID); err != nil {
			return nil, handleError(err)
		}
		cr, err := e.Repo.GetRequest(ctx, input.RequestID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ChangeRequest `json:"body"`
		}{Body: cr}, nil
	})
}

func registerChat(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "chat",
		Method:      http.MethodPost,
		Path:        "/chat",
		Summary:     "Conversational boundary",
		Description: "Always returns a best-effort reply; may file a change request as a side effect.",
	}, func(ctx context.Context, input *struct {
		Body ChatBody `json:"body"`
	}) (*struct {
		Body engine.ChatResult `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if strings.TrimSpace(input.Body.Text) == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "text is required", nil)
		}
		result, err := e.SubmitConversation(ctx, actorID, input.Body.Text, input.Body.History)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ChatResult `json:"body"`
		}{Body: result}, nil
	})
}

func registerCheck(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "check-artifact",
		Method:      http.MethodPost,
		Path:        "/check",
		Summary:     "Scan a single artifact against the compliance rules",
	}, func(ctx context.Context, input *struct {
		Body CheckArtifactBody `json:"body"`
	}) (*struct {
		Body compliancePayload `json:"body"`
	}, error) {
		report := e.Validator.Evaluate(input.Body.Text, input.Body.FilePath)
		return &struct {
			Body compliancePayload `json:"body"`
		}{Body: compliancePayload{
			Compliant:  report.Compliant,
			Violations: report.Violations,
			Summary:    report.Summary,
		}}, nil
	})
}

type compliancePayload struct {
	Compliant  bool                         `json:"compliant"`
	Violations []domain.ComplianceViolation `json:"violations"`
	Summary    domain.ViolationSummary      `json:"summary"`
}

func registerScan(api huma.API, e *engine.Engine) {
	type scanArtifact struct {
		Path string `json:"path"`
		Text string `json:"text"`
	}
	huma.Register(api, huma.Operation{
		OperationID: "scan-artifacts",
		Method:      http.MethodPost,
		Path:        "/scan",
		Summary:     "Batch-scan artifacts and learn recurring patterns",
	}, func(ctx context.Context, input *struct {
		Body struct {
			Artifacts []scanArtifact `json:"artifacts"`
		} `json:"body"`
	}) (*struct {
		Body scan.Summary `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		artifacts := make([]scan.Artifact, 0, len(input.Body.Artifacts))
		for _, a := range input.Body.Artifacts {
			artifacts = append(artifacts, scan.Artifact{Path: a.Path, Text: a.Text})
		}
		scanner := scan.New(e.Validator, e.Learning, actorID, e.Config.Scanner.GroupSize)
		summary, err := scanner.Run(ctx, artifacts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body scan.Summary `json:"body"`
		}{Body: summary}, nil
	})
}

func registerLedger(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "record-ledger",
		Method:        http.MethodPost,
		Path:          "/ledger",
		Summary:       "Append a work documentation record",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body RecordLedgerBody `json:"body"`
	}) (*struct {
		Body LedgerIDResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		id, err := e.Ledger.Record(ctx, domain.WorkDocumentation{
			BotName:    input.Body.BotName,
			Area:       input.Body.Area,
			Task:       input.Body.Task,
			Result:     input.Body.Result,
			Reflection: input.Body.Reflection,
			Errors:     input.Body.Errors,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LedgerIDResponse `json:"body"`
		}{Body: LedgerIDResponse{ID: id}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-ledger",
		Method:      http.MethodGet,
		Path:        "/ledger",
		Summary:     "Query work documentation records",
	}, func(ctx context.Context, input *struct {
		Bot    string `query:"bot" required:"false"`
		Area   string `query:"area" required:"false"`
		Signed bool   `query:"signed" required:"false"`
		Limit  int    `query:"limit" required:"false"`
	}) (*struct {
		Body []domain.WorkDocumentation `json:"body"`
	}, error) {
		items, err := e.Ledger.Query(ctx, ledger.Filter{
			BotName:    input.Bot,
			Area:       input.Area,
			SignedOnly: input.Signed,
			Limit:      input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.WorkDocumentation `json:"body"`
		}{Body: items}, nil
	})

	type recordPath struct {
		RecordID string `path:"record_id"`
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-ledger-record",
		Method:      http.MethodGet,
		Path:        "/ledger/{record_id}",
		Summary:     "Get a work documentation record",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *recordPath) (*struct {
		Body domain.WorkDocumentation `json:"body"`
	}, error) {
		entry, err := e.Ledger.Get(ctx, input.RecordID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkDocumentation `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "validate-ledger-record",
		Method:      http.MethodPost,
		Path:        "/ledger/{record_id}/validate",
		Summary:     "Record a validation judgment",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		RecordID string             `path:"record_id"`
		Body     ValidateLedgerBody `json:"body"`
	}) (*struct {
		Body domain.WorkDocumentation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Ledger.Validate(ctx, input.RecordID, actorID, input.Body.Passed, input.Body.Issues); err != nil {
			return nil, handleError(err)
		}
		entry, err := e.Ledger.Get(ctx, input.RecordID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkDocumentation `json:"body"`
		}{Body: entry}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sign-ledger-record",
		Method:      http.MethodPost,
		Path:        "/ledger/{record_id}/sign",
		Summary:     "Sign off a validated record",
		Errors: []int{
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *recordPath) (*struct {
		Body domain.WorkDocumentation `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		entry, err := e.Ledger.Sign(ctx, input.RecordID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkDocumentation `json:"body"`
		}{Body: entry}, nil
	})
}

func registerPatterns(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-patterns",
		Method:      http.MethodGet,
		Path:        "/patterns",
		Summary:     "List learned error patterns",
	}, func(ctx context.Context, input *struct {
		Agent   string `query:"agent" required:"false"`
		Unfixed bool   `query:"unfixed" required:"false"`
	}) (*struct {
		Body []domain.ErrorPattern `json:"body"`
	}, error) {
		var (
			items []domain.ErrorPattern
			err   error
		)
		switch {
		case input.Agent != "":
			items, err = e.Learning.FindByAgent(ctx, input.Agent)
		case input.Unfixed:
			items, err = e.Learning.FindUnfixed(ctx)
		default:
			items, err = e.Learning.List(ctx)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.ErrorPattern `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "fix-pattern",
		Method:      http.MethodPost,
		Path:        "/patterns/{pattern_id}/fix",
		Summary:     "Mark an error pattern as fixed",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PatternID string `path:"pattern_id"`
	}) (*struct {
		Body domain.ErrorPattern `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := e.Learning.MarkFixed(ctx, input.PatternID); err != nil {
			return nil, handleError(err)
		}
		p, err := e.Learning.Get(ctx, input.PatternID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ErrorPattern `json:"body"`
		}{Body: p}, nil
	})
}

func registerWorkflows(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workflows",
		Method:      http.MethodGet,
		Path:        "/workflows",
		Summary:     "List agent workflow definitions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.WorkflowDefinition `json:"body"`
	}, error) {
		return &struct {
			Body []domain.WorkflowDefinition `json:"body"`
		}{Body: e.Workflows.List()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workflow",
		Method:      http.MethodGet,
		Path:        "/workflows/{agent_id}",
		Summary:     "Get one agent's workflow definition",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		AgentID string `path:"agent_id"`
	}) (*struct {
		Body domain.WorkflowDefinition `json:"body"`
	}, error) {
		def, err := e.Workflows.Get(input.AgentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkflowDefinition `json:"body"`
		}{Body: def}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-workflow-checks",
		Method:      http.MethodPost,
		Path:        "/workflows/{agent_id}/checks",
		Summary:     "Run an agent's mandatory checks against an artifact",
		Errors:      []int{http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		AgentID string            `path:"agent_id"`
		Body    CheckArtifactBody `json:"body"`
	}) (*struct {
		Body workflow.ChecksOutcome `json:"body"`
	}, error) {
		outcome, err := e.Workflows.RunMandatoryChecks(input.AgentID, input.Body.Text, input.Body.FilePath)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body workflow.ChecksOutcome `json:"body"`
		}{Body: outcome}, nil
	})
}

func registerEvents(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Tail the audit event log",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" required:"false"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 50
		}
		items, err := e.Repo.ListEvents(ctx, limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: items}, nil
	})
}
