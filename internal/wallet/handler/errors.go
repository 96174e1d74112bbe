package handler

import (
	"errors"
	"net/http"

	"certwallet/internal/wallet/fetch"
	"certwallet/internal/wallet/parser"
	dErrors "certwallet/pkg/domain-errors"
	"certwallet/pkg/platform/httputil"
)

// translateError gives parse and fetch failures a domain code. Errors that
// already carry one pass through.
func translateError(err error) error {
	var domainErr *dErrors.Error
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, parser.ErrUnsupportedVersion):
		return dErrors.Wrap(err, dErrors.CodeUnsupportedVersion, err.Error())
	case errors.Is(err, parser.ErrMissingField), errors.Is(err, parser.ErrInvalidField):
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	case errors.Is(err, parser.ErrMalformedDocument):
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "certificate is not a JSON object")
	}

	var fetchErr *fetch.FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.Category {
		case fetch.ErrorTimeout:
			return dErrors.Wrap(err, dErrors.CodeTimeout, fetchErr.Error())
		case fetch.ErrorOutage, fetch.ErrorRateLimited:
			return dErrors.Wrap(err, dErrors.CodeUnavailable, fetchErr.Error())
		case fetch.ErrorNotFound, fetch.ErrorBadData, fetch.ErrorTooLarge:
			return dErrors.Wrap(err, dErrors.CodeValidation, fetchErr.Error())
		}
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "internal error")
}

// fieldDetails lists every failing field of a parse error.
func fieldDetails(err error) []httputil.FieldDetail {
	var pe *parser.ParseError
	if errors.As(err, &pe) {
		details := make([]httputil.FieldDetail, 0, len(pe.Errors))
		for _, e := range pe.Errors {
			var fe *parser.FieldError
			if errors.As(e, &fe) {
				details = append(details, httputil.FieldDetail{Field: fe.Field, Reason: string(fe.Kind)})
			}
		}
		return details
	}
	var fe *parser.FieldError
	if errors.As(err, &fe) {
		return []httputil.FieldDetail{{Field: fe.Field, Reason: string(fe.Kind)}}
	}
	return nil
}

func writeWalletError(w http.ResponseWriter, err error) {
	httputil.WriteErrorWithFields(w, translateError(err), fieldDetails(err))
}

func status(err error) int {
	var domainErr *dErrors.Error
	if errors.As(translateError(err), &domainErr) {
		return httputil.DomainCodeToHTTPStatus(domainErr.Code)
	}
	return http.StatusInternalServerError
}
