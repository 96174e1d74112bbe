// Package handler exposes the wallet over HTTP.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certwallet/internal/platform/middleware"
	"certwallet/internal/wallet/service"
	dErrors "certwallet/pkg/domain-errors"
	"certwallet/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Wallet,Importer

// Wallet is the slice of the wallet service the HTTP layer drives.
type Wallet interface {
	List() []service.Entry
	Get(filename string) (service.Entry, error)
	Verify(ctx context.Context, filename string) (service.Verification, error)
	Delete(ctx context.Context, filename string) error
	Refresh(ctx context.Context, uri string) error
}

// Importer imports one raw document and reports the outcome.
type Importer interface {
	Do(ctx context.Context, req service.ImportRequest) service.ImportResult
}

type Handler struct {
	wallet   Wallet
	importer Importer
	logger   *slog.Logger
}

func New(wallet Wallet, importer Importer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{wallet: wallet, importer: importer, logger: logger}
}

// Register mounts the certificate routes. adminAuth guards the issuer cache routes.
func (h *Handler) Register(r chi.Router, adminAuth func(http.Handler) http.Handler) {
	r.Route("/certificates", func(r chi.Router) {
		r.Post("/", h.HandleImport)
		r.Get("/", h.HandleList)
		r.Get("/{filename}", h.HandleGet)
		r.Delete("/{filename}", h.HandleDelete)
		r.Get("/{filename}/verification", h.HandleVerify)
	})
	r.With(adminAuth).Post("/admin/issuers/refresh", h.HandleRefresh)
}

// HandleImport stores the raw request body as a credential. A new credential
// answers 201, a byte-identical repeat answers 200.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.WarnContext(ctx, "certificate body too large",
				"request_id", requestID,
				"limit", tooLarge.Limit,
			)
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, httputil.ErrorResponse{
				Error:       "payload_too_large",
				Description: "certificate document exceeds the size limit",
			})
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}
	if len(raw) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is empty"))
		return
	}

	res := h.importer.Do(ctx, service.ImportRequest{ID: requestID, Raw: raw})
	if res.Err != nil {
		h.logImportFailure(ctx, requestID, res.Err)
		writeWalletError(w, res.Err)
		return
	}

	status := http.StatusCreated
	if res.Status == service.ImportDuplicate {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, ImportResponse{
		RequestID:   res.RequestID,
		Status:      string(res.Status),
		Certificate: toCertificateResponse(res.Filename, res.Credential),
	})
}

func (h *Handler) logImportFailure(ctx context.Context, requestID string, err error) {
	if status(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "certificate import failed",
			"request_id", requestID,
			"error", err,
		)
		return
	}
	h.logger.InfoContext(ctx, "certificate import rejected",
		"request_id", requestID,
		"error", err,
	)
}

func (h *Handler) HandleList(w http.ResponseWriter, _ *http.Request) {
	entries := h.wallet.List()
	resp := ListResponse{Certificates: make([]CertificateResponse, 0, len(entries)), Count: len(entries)}
	for _, e := range entries {
		resp.Certificates = append(resp.Certificates, toCertificateResponse(e.Filename, e.Credential))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.wallet.Get(chi.URLParam(r, "filename"))
	if err != nil {
		writeWalletError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCertificateResponse(entry.Filename, entry.Credential))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filename := chi.URLParam(r, "filename")

	if err := h.wallet.Delete(ctx, filename); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "certificate delete failed",
				"request_id", middleware.GetRequestID(ctx),
				"filename", filename,
				"error", err,
			)
		}
		writeWalletError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleVerify always answers 200 for a loaded certificate; the verdict, not
// the status code, carries the trust decision.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := h.wallet.Verify(ctx, chi.URLParam(r, "filename"))
	if err != nil {
		writeWalletError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "certificate verified",
		"request_id", middleware.GetRequestID(ctx),
		"filename", v.Filename,
		"verdict", v.Verdict,
	)
	httputil.WriteJSON(w, http.StatusOK, toVerificationResponse(v))
}

// HandleRefresh purges one cached issuer profile, or all of them when the
// request names no issuer.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RefreshRequest](ctx, w, r, h.logger)
	if !ok {
		return
	}

	if err := h.wallet.Refresh(ctx, req.Issuer); err != nil {
		h.logger.ErrorContext(ctx, "issuer cache refresh failed",
			"request_id", middleware.GetRequestID(ctx),
			"issuer", req.Issuer,
			"error", err,
		)
		writeWalletError(w, err)
		return
	}

	scope := req.Issuer
	if scope == "" {
		scope = "all"
	}
	h.logger.InfoContext(ctx, "issuer cache refreshed",
		"request_id", middleware.GetRequestID(ctx),
		"scope", scope,
		"admin", middleware.GetAdminSubject(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, RefreshResponse{Refreshed: scope})
}
