// Package pipeline orchestrates one extraction end to end: preprocess the
// uploaded documents, check the cache, call the model, validate the output,
// resolve provenance, and store the audit record.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/submission-intake/internal/cache"
	"github.com/sells-group/submission-intake/internal/gateway"
	"github.com/sells-group/submission-intake/internal/model"
	"github.com/sells-group/submission-intake/internal/preprocess"
	"github.com/sells-group/submission-intake/internal/prompt"
	"github.com/sells-group/submission-intake/internal/provenance"
	"github.com/sells-group/submission-intake/internal/store"
	"github.com/sells-group/submission-intake/internal/validate"
)

// RawDocument is one uploaded file before preprocessing.
type RawDocument struct {
	Name string
	MIME string
	Data []byte
}

// Output is the full outcome of one pipeline run: the preprocessed
// documents plus the extraction result.
type Output struct {
	Email       model.Document
	Attachments []model.Document
	Result      *model.ExtractionResult
}

// Pipeline wires the extraction stages together. A single Pipeline serves
// concurrent requests; every stage is either stateless or internally
// synchronized.
type Pipeline struct {
	pre           *preprocess.Preprocessor
	cache         *cache.Store
	gw            gateway.Inferrer
	resolver      *provenance.Resolver
	store         store.Store
	model         string
	hasCredential bool
}

// New assembles a Pipeline. store may be nil, which disables audit
// persistence. hasCredential gates the model call: without a credential the
// pipeline still preprocesses and returns a skipped result.
func New(
	pre *preprocess.Preprocessor,
	cacheStore *cache.Store,
	gw gateway.Inferrer,
	resolver *provenance.Resolver,
	st store.Store,
	modelID string,
	hasCredential bool,
) *Pipeline {
	return &Pipeline{
		pre:           pre,
		cache:         cacheStore,
		gw:            gw,
		resolver:      resolver,
		store:         st,
		model:         modelID,
		hasCredential: hasCredential,
	}
}

// Run executes one extraction. Preprocessing failures never fail the run;
// gateway and validation failures produce an Error-status result rather
// than an error return. The returned error covers only context
// cancellation.
func (p *Pipeline) Run(ctx context.Context, email RawDocument, attachments []RawDocument) (*Output, error) {
	out := &Output{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Email = p.pre.Preprocess(gctx, email.Data, email.Name, email.MIME, model.KindEmailChain)
		return nil
	})
	out.Attachments = make([]model.Document, len(attachments))
	for i, a := range attachments {
		g.Go(func() error {
			out.Attachments[i] = p.pre.Preprocess(gctx, a.Data, a.Name, a.MIME, model.KindAttachment)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := p.createRun(ctx, email.Name, len(attachments))

	key := prompt.Build(out.Email, out.Attachments, p.model).Fingerprint()
	if hit := p.cache.Lookup(key); hit != nil {
		zap.L().Info("pipeline: cache hit",
			zap.String("email", email.Name),
			zap.String("fingerprint", key[:12]),
		)
		out.Result = hit
		p.completeRun(ctx, runID, hit)
		return out, nil
	}

	if !p.hasCredential {
		out.Result = &model.ExtractionResult{
			Status:  model.StatusSkipped,
			Message: "missing_api_key",
			Model:   p.model,
		}
		p.completeRun(ctx, runID, out.Result)
		return out, nil
	}

	result := p.infer(ctx, out, key)
	out.Result = result
	if result.Status == model.StatusError {
		p.failRun(ctx, runID, result.Message)
	} else {
		p.completeRun(ctx, runID, result)
	}
	return out, nil
}

// infer runs the model call, validation, and provenance resolution for a
// cache miss, caching only ok results.
func (p *Pipeline) infer(ctx context.Context, out *Output, key string) *model.ExtractionResult {
	payload := prompt.Build(out.Email, out.Attachments, p.model)

	start := time.Now()
	resp, err := p.gw.Infer(ctx, payload)
	if err != nil {
		tag := gateway.Categorize(err)
		zap.L().Warn("pipeline: model call failed",
			zap.String("email", out.Email.Name),
			zap.String("category", tag),
			zap.Error(err),
		)
		return &model.ExtractionResult{
			Status:  model.StatusError,
			Message: tag,
			Model:   p.model,
		}
	}

	validated, failure := validate.Validate(resp.RawText)
	if failure != nil {
		zap.L().Warn("pipeline: model output rejected",
			zap.String("email", out.Email.Name),
			zap.String("reason", failure.Reason),
			zap.Int("raw_len", len(failure.RawText)),
		)
		return &model.ExtractionResult{
			Status:    model.StatusError,
			Message:   "parse_failure: " + failure.Reason,
			Model:     p.model,
			Usage:     &resp.Usage,
			LatencyMS: resp.LatencyMS,
		}
	}

	docs := make([]model.Document, 0, 1+len(out.Attachments))
	docs = append(docs, out.Email)
	docs = append(docs, out.Attachments...)
	prov := p.resolver.Resolve(&validated.Fields, validated.Citations, docs)

	usage := resp.Usage
	result := &model.ExtractionResult{
		Status:          model.StatusOk,
		Data:            &validated.Fields,
		FieldConfidence: validated.FieldConfidence,
		Citations:       validated.Citations,
		Provenance:      prov,
		Model:           p.model,
		Usage:           &usage,
		LatencyMS:       resp.LatencyMS,
	}

	p.cache.Put(key, result)

	zap.L().Info("pipeline: extraction complete",
		zap.String("email", out.Email.Name),
		zap.Int("attachments", len(out.Attachments)),
		zap.Int("addresses", len(validated.Fields.PropertyAddresses)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result
}

// Audit writes are best effort: a storage failure is logged and the
// extraction proceeds.

func (p *Pipeline) createRun(ctx context.Context, emailName string, attachmentCount int) string {
	if p.store == nil {
		return ""
	}
	id, err := p.store.CreateRun(ctx, emailName, attachmentCount)
	if err != nil {
		zap.L().Warn("pipeline: audit create failed", zap.Error(err))
		return ""
	}
	return id
}

func (p *Pipeline) completeRun(ctx context.Context, id string, result *model.ExtractionResult) {
	if p.store == nil || id == "" {
		return
	}
	if err := p.store.CompleteRun(ctx, id, result); err != nil {
		zap.L().Warn("pipeline: audit complete failed", zap.String("run", id), zap.Error(err))
	}
}

func (p *Pipeline) failRun(ctx context.Context, id, message string) {
	if p.store == nil || id == "" {
		return
	}
	if err := p.store.FailRun(ctx, id, message); err != nil {
		zap.L().Warn("pipeline: audit fail failed", zap.String("run", id), zap.Error(err))
	}
}
