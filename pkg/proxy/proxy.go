package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/audit/recorder"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/envelope"
	"mercator-hq/ganymede/pkg/fanout"
	"mercator-hq/ganymede/pkg/filter"
	"mercator-hq/ganymede/pkg/identity"
	"mercator-hq/ganymede/pkg/limits"
	"mercator-hq/ganymede/pkg/policy"
	"mercator-hq/ganymede/pkg/proxy/types"
	"mercator-hq/ganymede/pkg/source"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/telemetry/tracing"
)

// Pipeline stage names, used as the stage label on duration metrics.
const (
	StageIdentity = "identity"
	StageLimits   = "limits"
	StagePolicy   = "policy"
	StageFanout   = "fanout"
	StageFilter   = "filter"
	StageEnvelope = "envelope"
	StageAudit    = "audit"
)

// Dependencies carries everything a Proxy needs. Validator, Engine,
// Sources, Coordinator, and Recorder are required; the rest default to
// disabled implementations when nil.
type Dependencies struct {
	// Validator performs the identity stage.
	Validator *identity.Validator

	// Engine resolves intents to policy decisions.
	Engine *policy.Engine

	// Sources resolves policy source names to connectors.
	Sources *source.Registry

	// Coordinator performs the fan-out stage.
	Coordinator *fanout.Coordinator

	// Recorder appends to the audit trail.
	Recorder *recorder.Recorder

	// Limiter enforces per-agent quotas. Nil skips the quota stage.
	Limiter *limits.Manager

	// Metrics collects Prometheus metrics. Nil disables collection.
	Metrics *metrics.Collector

	// Tracer emits request spans. Nil disables tracing.
	Tracer *tracing.Tracer
}

// Proxy runs the context-governance pipeline: identity, quota, policy,
// fan-out, filter, envelope, audit. It is the only path by which an
// agent obtains upstream data, and nothing leaves it unaudited.
type Proxy struct {
	validator   *identity.Validator
	engine      *policy.Engine
	sources     *source.Registry
	coordinator *fanout.Coordinator
	recorder    *recorder.Recorder
	limiter     *limits.Manager
	metrics     *metrics.Collector
	tracer      *tracing.Tracer
	logger      *slog.Logger
}

// New creates a proxy from its dependencies.
func New(deps Dependencies) (*Proxy, error) {
	if deps.Validator == nil {
		return nil, fmt.Errorf("proxy: identity validator is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("proxy: policy engine is required")
	}
	if deps.Sources == nil {
		return nil, fmt.Errorf("proxy: source registry is required")
	}
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("proxy: fan-out coordinator is required")
	}
	if deps.Recorder == nil {
		return nil, fmt.Errorf("proxy: audit recorder is required")
	}

	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NewCollector(&config.MetricsConfig{Disabled: true}, nil)
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer, _ = tracing.New(&config.TracingConfig{}, "")
	}

	return &Proxy{
		validator:   deps.Validator,
		engine:      deps.Engine,
		sources:     deps.Sources,
		coordinator: deps.Coordinator,
		recorder:    deps.Recorder,
		limiter:     deps.Limiter,
		metrics:     collector,
		tracer:      tracer,
		logger:      slog.Default().With("component", "proxy"),
	}, nil
}

// RequestContext runs one context request through the full pipeline
// and returns the minimal envelope the governing policy permits.
//
// Every outcome that engaged the pipeline is audited. A refusal is
// audited best-effort; a successful envelope is audited before it is
// returned, and an envelope whose audit append fails is discarded.
func (p *Proxy) RequestContext(ctx context.Context, req *ContextRequest) (*envelope.ContextEnvelope, error) {
	start := time.Now()

	if req == nil {
		return nil, NewRequestError("request is required", types.CodeInvalidRequest, "")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID, ok := logging.GetRequestID(ctx)
	if !ok || requestID == "" {
		requestID = uuid.NewString()
		ctx = logging.WithRequestID(ctx, requestID)
	}
	ctx = logging.WithIntent(ctx, req.Intent)

	ctx, span := p.tracer.Start(ctx, "proxy.request")
	defer span.End()
	tracing.SetRequestAttributes(span, requestID, "", req.Intent)

	entry := &recorder.Entry{
		RequestID:  requestID,
		Timestamp:  start,
		Intent:     req.Intent,
		SubjectKey: req.subjectKey(),
	}

	p.logger.InfoContext(ctx, "context request received",
		"subject_key", entry.SubjectKey,
		"parameters", len(req.Parameters),
	)

	// Identity: authenticate the token, authorize the intent.
	stageCtx, done := p.startStage(ctx, StageIdentity, "identity.validate")
	id, err := p.validator.Validate(stageCtx, req.CallerToken, req.Intent)
	done(err)
	if err != nil {
		return nil, p.refuse(ctx, entry, err)
	}
	entry.AgentID = id.AgentID
	ctx = logging.WithAgentID(ctx, id.AgentID)
	tracing.SetRequestAttributes(span, requestID, id.AgentID, req.Intent)

	// Quota: bounded request budget per agent.
	if p.limiter != nil {
		stageCtx, done = p.startStage(ctx, StageLimits, "limits.allow")
		decision, limitErr := p.limiter.Allow(stageCtx, id.AgentID)
		if limitErr == nil && !decision.Allowed {
			limitErr = limits.NewQuotaExceededError(decision)
		}
		done(limitErr)
		if limitErr != nil {
			var quotaErr *limits.QuotaExceededError
			if errors.As(limitErr, &quotaErr) {
				p.metrics.RecordQuotaRejection(id.AgentID)
			}
			return nil, p.refuse(ctx, entry, limitErr)
		}
	}

	// Policy: resolve the intent to a decision.
	stageCtx, done = p.startStage(ctx, StagePolicy, "policy.decide")
	decision, err := p.engine.Decide(req.Intent)
	if err == nil {
		tracing.SetPolicyAttributes(tracing.SpanFromContext(stageCtx), decision.Summary(), "allow")
	}
	elapsed := done(err)
	if err != nil {
		p.metrics.RecordPolicyDecision(req.Intent, "not_found", elapsed)
		return nil, p.refuse(ctx, entry, err)
	}
	p.metrics.RecordPolicyDecision(decision.Summary(), "allow", elapsed)
	entry.PolicyDecision = decision.Summary()
	entry.Classification = decision.Classification
	ctx = logging.WithPolicyID(ctx, decision.Summary())

	// Fan-out: fetch every policy source in parallel.
	tasks, err := p.buildTasks(decision, req)
	if err != nil {
		return nil, p.refuse(ctx, entry, err)
	}
	for _, task := range tasks {
		entry.SourcesQueried = append(entry.SourcesQueried, task.Source)
	}

	stageCtx, done = p.startStage(ctx, StageFanout, "fanout.execute")
	rs, err := p.coordinator.Execute(stageCtx, tasks)
	if err == nil {
		if failed := rs.RequiredFailure(); failed != nil {
			err = failed.Err
		}
	}
	done(err)
	if rs != nil {
		p.recordSourceResults(rs)
	}
	if err != nil {
		return nil, p.refuse(ctx, entry, err)
	}
	entry.SourcesOmitted = rs.Omitted()

	// Filter: project each payload onto its allow-list.
	_, done = p.startStage(ctx, StageFilter, "filter.apply")
	inputs := p.buildSourceInputs(decision, rs, entry)
	done(nil)

	// Envelope: assemble, account sizes, digest.
	_, done = p.startStage(ctx, StageEnvelope, "envelope.build")
	env, err := envelope.Build(envelope.BuildInput{
		RequestID: requestID,
		Timestamp: start,
		Agent:     id.Snapshot(),
		Decision:  decision,
		Sources:   inputs,
	})
	done(err)
	if err != nil {
		return nil, p.refuse(ctx, entry, err)
	}
	entry.OriginalSize = env.Provenance.OriginalSize
	entry.FilteredSize = env.Provenance.FilteredSize
	entry.EnvelopeDigest = env.Provenance.Digest

	// Audit: the envelope is not released until its record is durable.
	entry.Success = true
	entry.Duration = time.Since(start)
	stageCtx, done = p.startStage(ctx, StageAudit, "audit.append")
	_, err = p.recorder.Record(stageCtx, entry)
	elapsed = done(err)
	if err != nil {
		p.metrics.RecordAuditAppend("error", elapsed)
		p.metrics.RecordRequest(req.Intent, "internal_error", time.Since(start), 0)
		tracing.SetOutcomeAttribute(span, "internal_error")
		tracing.SetErrorAttributes(span, err, "audit_append")
		p.logger.ErrorContext(ctx, "audit append failed, discarding envelope", "error", err)
		return nil, fmt.Errorf("audit append failed: %w", err)
	}
	p.metrics.RecordAuditAppend("success", elapsed)

	envelopeBytes, sizeErr := filter.EncodedSize(env)
	if sizeErr != nil {
		envelopeBytes = env.Provenance.FilteredSize
	}
	totalDuration := time.Since(start)
	p.metrics.RecordRequest(req.Intent, "success", totalDuration, int(envelopeBytes))
	p.metrics.RecordRedactedFields(req.Intent, len(env.Constraints.RedactedFields))

	fieldsReturned := 0
	for _, fields := range entry.FieldsReturned {
		fieldsReturned += len(fields)
	}
	tracing.SetEnvelopeAttributes(span, int(envelopeBytes), fieldsReturned, len(env.Constraints.RedactedFields))
	tracing.SetOutcomeAttribute(span, "success")
	tracing.SetStatus(span, nil)

	p.logger.InfoContext(ctx, "context request completed",
		"duration_ms", float64(totalDuration.Microseconds())/1000.0,
		"sources_queried", len(entry.SourcesQueried),
		"sources_omitted", len(entry.SourcesOmitted),
		"original_size", entry.OriginalSize,
		"filtered_size", entry.FilteredSize,
		"redacted_fields", len(env.Constraints.RedactedFields),
		"classification", entry.Classification,
	)

	return env, nil
}

// Close releases the proxy's owned resources: the audit recorder and,
// when present, the quota manager. Stateless dependencies are owned by
// the caller.
func (p *Proxy) Close() error {
	var firstErr error
	if p.limiter != nil {
		if err := p.limiter.Close(); err != nil {
			firstErr = err
		}
	}
	if err := p.recorder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// startStage opens a child span for a pipeline stage and returns the
// stage context plus a completion func. The completion func ends the
// span, records the stage duration, and returns the elapsed time.
func (p *Proxy) startStage(ctx context.Context, stage, spanName string) (context.Context, func(error) time.Duration) {
	start := time.Now()
	stageCtx, span := p.tracer.Start(ctx, spanName)
	return stageCtx, func(err error) time.Duration {
		elapsed := time.Since(start)
		if err != nil {
			tracing.SetError(span, err)
		}
		tracing.SetStatus(span, err)
		span.End()
		p.metrics.RecordStage(stage, elapsed)
		return elapsed
	}
}

// refuse finishes a request that will not produce an envelope. The
// refusal is audited best-effort: a failed append is logged but never
// masks the original error.
func (p *Proxy) refuse(ctx context.Context, entry *recorder.Entry, err error) error {
	outcome, errType := classify(err)
	entry.Success = false
	entry.ErrorType = errType
	entry.ErrorMessage = err.Error()
	entry.Duration = time.Since(entry.Timestamp)

	stageCtx, done := p.startStage(ctx, StageAudit, "audit.append")
	_, auditErr := p.recorder.Record(stageCtx, entry)
	elapsed := done(auditErr)
	if auditErr != nil {
		p.metrics.RecordAuditAppend("error", elapsed)
		p.logger.ErrorContext(ctx, "failed to audit refused request",
			"refusal", errType,
			"error", auditErr,
		)
	} else {
		p.metrics.RecordAuditAppend("success", elapsed)
	}

	p.metrics.RecordRequest(entry.Intent, outcome, entry.Duration, 0)

	span := tracing.SpanFromContext(ctx)
	tracing.SetOutcomeAttribute(span, outcome)
	tracing.SetErrorAttributes(span, err, errType)

	p.logger.WarnContext(ctx, "context request refused",
		"outcome", outcome,
		"error_type", errType,
		"error", err,
		"duration_ms", float64(entry.Duration.Microseconds())/1000.0,
	)
	return err
}

// buildTasks turns the decision's source bindings into fan-out tasks.
// A source name the registry cannot resolve is an operator error; a
// missing key parameter is a caller error.
func (p *Proxy) buildTasks(decision *policy.Decision, req *ContextRequest) ([]fanout.Task, error) {
	tasks := make([]fanout.Task, 0, len(decision.Sources))
	for i := range decision.Sources {
		sp := &decision.Sources[i]

		fetcher, err := p.sources.Get(sp.Name)
		if err != nil {
			return nil, err
		}

		var key string
		if sp.KeyParam != "" {
			key = req.Parameters[sp.KeyParam]
			if key == "" {
				return nil, NewRequestError(
					fmt.Sprintf("parameter %q is required for intent %q", sp.KeyParam, decision.Intent),
					types.CodeMissingField, sp.KeyParam)
			}
		}

		tasks = append(tasks, fanout.Task{
			Source:   sp.Name,
			Fetcher:  fetcher,
			Key:      key,
			Required: sp.Required,
			CacheTTL: sp.CacheTTL(),
		})
	}
	return tasks, nil
}

// buildSourceInputs filters each fetched payload and assembles the
// builder inputs in policy order, recording per-source field handling
// on the audit entry.
func (p *Proxy) buildSourceInputs(decision *policy.Decision, rs *fanout.ResultSet, entry *recorder.Entry) []envelope.SourceInput {
	inputs := make([]envelope.SourceInput, 0, len(decision.Sources))
	entry.FieldsReturned = make(map[string][]string, len(decision.Sources))
	entry.FieldsRedacted = make(map[string][]string, len(decision.Sources))

	for i := range decision.Sources {
		sp := &decision.Sources[i]
		payload := rs.Payload(sp.Name)
		if payload == nil {
			inputs = append(inputs, envelope.SourceInput{
				Name:      sp.Name,
				Freshness: sp.Freshness,
				Omitted:   true,
			})
			continue
		}

		result := filter.ApplyToSource(sp.Name, payload.Data, sp.Fields)
		inputs = append(inputs, envelope.SourceInput{
			Name:      sp.Name,
			Freshness: sp.Freshness,
			Raw:       payload.Data,
			Filtered:  result,
			FetchedAt: payload.FetchedAt,
			Cached:    payload.Cached,
		})

		returned := make([]string, 0, len(result.Payload))
		for field := range result.Payload {
			returned = append(returned, field)
		}
		sort.Strings(returned)
		entry.FieldsReturned[sp.Name] = returned
		entry.FieldsRedacted[sp.Name] = result.Removed
	}
	return inputs
}

// recordSourceResults emits per-source fetch metrics, including cache
// accounting for cacheable sources.
func (p *Proxy) recordSourceResults(rs *fanout.ResultSet) {
	for i := range rs.Results {
		r := &rs.Results[i]
		name := r.Task.Source

		if r.OK() {
			p.metrics.RecordSourceFetch(name, "success", r.Elapsed)
			p.metrics.UpdateSourceHealth(name, true)
			if r.Task.CacheTTL > 0 {
				if r.Payload.Cached {
					p.metrics.RecordCacheHit("payload")
				} else {
					p.metrics.RecordCacheMiss("payload")
				}
			}
			continue
		}

		p.metrics.RecordSourceFetch(name, "error", r.Elapsed)
		p.metrics.UpdateSourceHealth(name, false)
		p.metrics.RecordSourceError(name, sourceErrorType(r.Err))
	}
}

// sourceErrorType labels a source failure for metrics.
func sourceErrorType(err error) string {
	switch {
	case source.IsNotFound(err):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// classify maps a pipeline error to its request outcome label and
// audit error type.
func classify(err error) (outcome, errType string) {
	var reqErr *RequestError
	var authnErr *identity.AuthenticationError
	var authzErr *identity.AuthorizationError
	var policyErr *policy.NotFoundError
	var quotaErr *limits.QuotaExceededError
	var subjectErr *source.NotFoundError
	var timeoutErr *fanout.TimeoutError
	var sourceErr *source.SourceError

	switch {
	case errors.As(err, &authnErr):
		return "unauthorized", "authentication_error"
	case errors.As(err, &authzErr):
		return "denied", "authorization_error"
	case errors.As(err, &policyErr):
		return "invalid", "policy_not_found"
	case errors.As(err, &quotaErr):
		return "quota_exceeded", "quota_exceeded"
	case errors.As(err, &subjectErr):
		return "invalid", "subject_not_found"
	case errors.As(err, &timeoutErr):
		return "timeout", "timeout"
	case errors.As(err, &sourceErr):
		return "upstream_error", "source_error"
	case errors.As(err, &reqErr):
		return "invalid", "invalid_request"
	default:
		return "internal_error", "internal_error"
	}
}
