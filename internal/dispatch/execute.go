package dispatch

import (
	"context"
	"time"

	"inferd/internal/backend"
	"inferd/internal/history"
)

// execute runs req on the named server, whose load counter the caller has
// already incremented. On settlement it decrements the counter and kicks
// the queue so freed capacity is offered to waiting requests, then either
// returns the result (persisting it as a side effect) or the failure.
// A failed request is not requeued; the caller observes the failure.
func (d *Dispatcher) execute(ctx context.Context, server string, req Request) (Result, error) {
	status, ok := d.reg.Get(server)
	if !ok {
		// Configuration is immutable for the process lifetime, so a
		// placed server cannot disappear; guard anyway.
		d.reg.DecrementLoad(server)
		d.Kick()
		return Result{}, serverNotFoundError{name: server}
	}
	baseURL := status.Config.BaseURL

	cctx, cancel := context.WithTimeout(ctx, d.execTimeout)
	defer cancel()

	start := time.Now()
	var res Result
	var err error
	if req.Embedding {
		var out backend.EmbeddingsResult
		out, err = d.adapter.Embeddings(cctx, baseURL, backend.EmbeddingsRequest{
			Model: req.Model, Prompt: req.Prompt, Options: req.Options,
		})
		res.Embedding = out.Embedding
	} else {
		var out backend.GenerateResult
		out, err = d.adapter.Generate(cctx, baseURL, backend.GenerateRequest{
			Model: req.Model, Prompt: req.Prompt, Options: req.Options,
		})
		res.Response = out.Response
	}
	dur := time.Since(start)
	backendDuration.WithLabelValues(server, kindLabel(req)).Observe(dur.Seconds())

	d.reg.DecrementLoad(server)
	d.Kick()

	if err != nil {
		dispatchTotal.WithLabelValues("failed").Inc()
		d.log.Warn().Err(err).Str("server", server).Str("model", req.Model).Dur("dur", dur).Msg("backend call failed")
		return Result{}, executionError{server: server, cause: err}
	}

	res.Server = server
	res.Model = req.Model
	res.Duration = dur
	res.Done = time.Now()
	d.log.Info().Str("server", server).Str("model", req.Model).Dur("dur", dur).Msg("request completed")

	if !req.Embedding && res.Response != "" {
		d.persist(req, res)
	}
	return res, nil
}

// persist writes the completed prompt to the history sink without blocking
// the dispatch path. A failed write never affects the request outcome.
func (d *Dispatcher) persist(req Request, res Result) {
	if d.sink == nil {
		return
	}
	rec := history.Record{
		Server:          res.Server,
		Model:           res.Model,
		Prompt:          req.Prompt,
		Response:        res.Response,
		Duration:        res.Duration,
		EstimatedTokens: history.EstimateTokens(res.Response),
		Temperature:     temperatureOf(req.Options),
		CreatedAt:       res.Done,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.sink.Save(ctx, rec); err != nil {
			d.log.Warn().Err(err).Str("server", rec.Server).Msg("history write failed")
		}
	}()
}

func temperatureOf(options map[string]any) *float64 {
	switch v := options["temperature"].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	default:
		return nil
	}
}

func kindLabel(req Request) string {
	if req.Embedding {
		return "embeddings"
	}
	return "generate"
}
