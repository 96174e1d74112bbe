package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/blake2b"

	"certwallet/internal/wallet/events"
	"certwallet/internal/wallet/parser"
	"certwallet/internal/wallet/tracer"
	dErrors "certwallet/pkg/domain-errors"
)

// ImportStatus distinguishes a new credential from a repeat of stored bytes.
type ImportStatus string

const (
	ImportCreated   ImportStatus = "imported"
	ImportDuplicate ImportStatus = "duplicate"
)

// ImportOutcome is the result of a successful import.
type ImportOutcome struct {
	Entry  Entry
	Status ImportStatus
}

// Import parses raw and stores it under the credential's filename.
//
// Importing bytes identical to the stored document is not an error and reports
// ImportDuplicate. Different bytes under the same filename fail with a conflict
// and leave the stored document untouched. Parse failures are returned as-is
// (see parser.ParseError) and touch neither the store nor the loaded list.
func (s *Service) Import(ctx context.Context, raw []byte) (out ImportOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanImport)
	defer func() {
		span.SetAttributes(tracer.String(tracer.AttrImportState, importOutcome(out, err)))
		span.End(err)
		if s.metrics != nil {
			s.metrics.RecordImport(importOutcome(out, err))
		}
	}()

	cred, err := s.parser.ParseCredentialBytes(ctx, raw)
	if err != nil {
		return ImportOutcome{}, err
	}
	entry := Entry{Filename: cred.Filename(), Credential: cred}
	span.SetAttributes(tracer.String(tracer.AttrCredential, cred.ID()))

	s.locks.Lock(entry.Filename)
	defer s.locks.Unlock(entry.Filename)

	saved, err := s.store.Save(ctx, entry.Filename, raw)
	if err != nil {
		return ImportOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save certificate")
	}
	if !saved {
		existing, err := s.store.Read(ctx, entry.Filename)
		if err != nil {
			return ImportOutcome{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read stored certificate")
		}
		if digest(existing) != digest(raw) {
			return ImportOutcome{}, dErrors.New(dErrors.CodeConflict,
				"a different certificate is already stored as "+entry.Filename)
		}
		s.add(entry)
		return ImportOutcome{Entry: entry, Status: ImportDuplicate}, nil
	}

	s.add(entry)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "certificate imported",
			"filename", entry.Filename,
			"credential_id", cred.ID(),
			"version", cred.Version(),
		)
	}
	return ImportOutcome{Entry: entry, Status: ImportCreated}, nil
}

func digest(b []byte) [blake2b.Size256]byte {
	return blake2b.Sum256(b)
}

func importOutcome(out ImportOutcome, err error) string {
	switch {
	case err == nil && out.Status == ImportDuplicate:
		return events.OutcomeDuplicate
	case err == nil:
		return events.OutcomeImported
	case dErrors.HasCode(err, dErrors.CodeConflict):
		return events.OutcomeConflict
	case isParseFailure(err):
		return events.OutcomeInvalid
	default:
		return events.OutcomeFailed
	}
}

// isParseFailure reports whether err describes a defective document rather than
// an environmental failure.
func isParseFailure(err error) bool {
	return errors.Is(err, parser.ErrMissingField) ||
		errors.Is(err, parser.ErrInvalidField) ||
		errors.Is(err, parser.ErrUnsupportedVersion) ||
		errors.Is(err, parser.ErrMalformedDocument)
}
