package service

import (
	"context"

	"github.com/google/uuid"

	"certwallet/internal/wallet/domain/credential"
	"certwallet/internal/wallet/events"
)

// ImportRequest is one document handed to the wallet for import.
type ImportRequest struct {
	ID  string
	Raw []byte
}

// ImportResult answers the request with the same ID.
type ImportResult struct {
	RequestID  string
	Filename   string
	Credential *credential.Credential
	Status     ImportStatus
	Err        error
}

// Importer feeds requests from a channel through Service.Import and answers on
// another channel, in request order.
type Importer struct {
	svc *Service
}

func NewImporter(svc *Service) *Importer {
	return &Importer{svc: svc}
}

// Run processes requests until in is closed or ctx is done, then closes the
// returned channel. Requests without an ID are assigned one.
func (im *Importer) Run(ctx context.Context, in <-chan ImportRequest) <-chan ImportResult {
	out := make(chan ImportResult)
	go func() {
		defer close(out)
		for {
			var req ImportRequest
			var ok bool
			select {
			case <-ctx.Done():
				return
			case req, ok = <-in:
				if !ok {
					return
				}
			}

			res := im.Do(ctx, req)
			select {
			case <-ctx.Done():
				return
			case out <- res:
			}
		}
	}()
	return out
}

// Do imports a single request and publishes its outcome.
func (im *Importer) Do(ctx context.Context, req ImportRequest) ImportResult {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	outcome, err := im.svc.Import(ctx, req.Raw)
	res := ImportResult{RequestID: req.ID, Err: err}
	if err == nil {
		res.Filename = outcome.Entry.Filename
		res.Credential = outcome.Entry.Credential
		res.Status = outcome.Status
	}
	im.publish(ctx, res, importOutcome(outcome, err))
	return res
}

func (im *Importer) publish(ctx context.Context, res ImportResult, outcome string) {
	if im.svc.publisher == nil {
		return
	}
	event := events.ImportEvent{
		RequestID: res.RequestID,
		Outcome:   outcome,
		Filename:  res.Filename,
	}
	if res.Credential != nil {
		event.CredentialID = res.Credential.ID()
		event.IssuerID = res.Credential.Issuer().URI
	}
	if res.Err != nil {
		event.Error = res.Err.Error()
	}
	if err := im.svc.publisher.PublishImport(ctx, event); err != nil && im.svc.logger != nil {
		im.svc.logger.WarnContext(ctx, "failed to publish import event",
			"request_id", res.RequestID,
			"error", err,
		)
	}
}
