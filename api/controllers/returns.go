package controllers

import (
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/api/responses"
	"github.com/angelmondragon/marketplace-backend/api/validators"
	"github.com/angelmondragon/marketplace-backend/internal/media"
	"github.com/angelmondragon/marketplace-backend/internal/returns"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

const multipartMemory = 32 << 20

type returnRequestResponse struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"orderId"`
	UserID         string    `json:"userId"`
	StoreID        uuid.UUID `json:"storeId"`
	Type           string    `json:"type"`
	Reason         string    `json:"reason"`
	Description    string    `json:"description"`
	Images         []string  `json:"images"`
	Videos         []string  `json:"videos"`
	Status         string    `json:"status"`
	FastProcess    bool      `json:"fastProcess"`
	ProductRating  *int      `json:"productRating"`
	DeliveryRating *int      `json:"deliveryRating"`
	ReviewText     *string   `json:"reviewText"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func newReturnRequestResponse(req models.ReturnRequest) returnRequestResponse {
	images := []string(req.Images)
	if images == nil {
		images = []string{}
	}
	videos := []string(req.Videos)
	if videos == nil {
		videos = []string{}
	}
	return returnRequestResponse{
		ID:             req.ID,
		OrderID:        req.OrderID,
		UserID:         req.UserID,
		StoreID:        req.StoreID,
		Type:           string(req.Type),
		Reason:         req.Reason,
		Description:    req.Description,
		Images:         images,
		Videos:         videos,
		Status:         string(req.Status),
		FastProcess:    req.FastProcess,
		ProductRating:  req.ProductRating,
		DeliveryRating: req.DeliveryRating,
		ReviewText:     req.ReviewText,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
	}
}

func newReturnRequestResponses(rows []models.ReturnRequest) []returnRequestResponse {
	out := make([]returnRequestResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, newReturnRequestResponse(row))
	}
	return out
}

// ReturnRequestList returns the caller's return and replacement requests.
func ReturnRequestList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return request service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.ListForUser(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": newReturnRequestResponses(rows)})
	}
}

type returnRequestBody struct {
	OrderID        string   `json:"orderId"`
	Type           string   `json:"type"`
	Reason         string   `json:"reason"`
	Description    string   `json:"description"`
	Images         []string `json:"images"`
	Videos         []string `json:"videos"`
	FastProcess    bool     `json:"fastProcess"`
	ProductRating  *int     `json:"productRating"`
	DeliveryRating *int     `json:"deliveryRating"`
	ReviewText     *string  `json:"reviewText"`
}

// ReturnRequestCreate accepts either a JSON body with hosted media URLs or a
// multipart form carrying images[] and videos[] files.
func ReturnRequestCreate(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return request service unavailable"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input returns.CreateInput
		if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
			parsed, closers, err := parseReturnForm(r)
			defer closeAll(closers)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			input = parsed
		} else {
			var body returnRequestBody
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			input = returns.CreateInput{
				OrderID:        body.OrderID,
				Type:           body.Type,
				Reason:         body.Reason,
				Description:    body.Description,
				Images:         body.Images,
				Videos:         body.Videos,
				FastProcess:    body.FastProcess,
				ProductRating:  body.ProductRating,
				DeliveryRating: body.DeliveryRating,
				ReviewText:     body.ReviewText,
			}
		}

		created, err := svc.Create(ctx, userID, sanitizeReturnInput(input))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"message": "Return/replacement request submitted successfully",
			"request": newReturnRequestResponse(*created),
		})
	}
}

func sanitizeReturnInput(input returns.CreateInput) returns.CreateInput {
	input.Reason = validators.SanitizeText(input.Reason, validators.MaxReasonRunes)
	input.Description = validators.SanitizeText(input.Description, validators.MaxDescriptionRunes)
	input.ReviewText = validators.SanitizeOptionalText(input.ReviewText, validators.MaxReviewRunes)
	return input
}

func parseReturnForm(r *http.Request) (returns.CreateInput, []io.Closer, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return returns.CreateInput{}, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	form := r.MultipartForm
	input := returns.CreateInput{
		OrderID:     formValue(form, "orderId"),
		Type:        formValue(form, "type"),
		Reason:      formValue(form, "reason"),
		Description: formValue(form, "description"),
		FastProcess: formValue(form, "fastProcess") == "true",
		Images:      form.Value["images"],
		Videos:      form.Value["videos"],
	}
	var err error
	if input.ProductRating, err = formInt(form, "productRating"); err != nil {
		return input, nil, err
	}
	if input.DeliveryRating, err = formInt(form, "deliveryRating"); err != nil {
		return input, nil, err
	}
	if text := formValue(form, "reviewText"); text != "" {
		input.ReviewText = &text
	}

	var closers []io.Closer
	input.ImageFiles, closers, err = openParts(form.File["images"], closers)
	if err != nil {
		return input, closers, err
	}
	input.VideoFiles, closers, err = openParts(form.File["videos"], closers)
	if err != nil {
		return input, closers, err
	}
	return input, closers, nil
}

func openParts(headers []*multipart.FileHeader, closers []io.Closer) ([]media.File, []io.Closer, error) {
	files := make([]media.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closers, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
		}
		closers = append(closers, f)
		files = append(files, media.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return files, closers, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

func formInt(form *multipart.Form, key string) (*int, error) {
	raw := formValue(form, key)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, key+" must be numeric").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

// StoreReturnRequestList returns the requests filed against the caller's store.
func StoreReturnRequestList(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return request service unavailable"))
			return
		}
		storeID, err := sellerStoreID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.ListForStore(ctx, storeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": newReturnRequestResponses(rows)})
	}
}

type returnStatusBody struct {
	Status string `json:"status"`
}

// StoreReturnRequestUpdate moves a request to a new status.
func StoreReturnRequestUpdate(svc returns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "return request service unavailable"))
			return
		}
		storeID, err := sellerStoreID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		requestID, err := validators.ParseUUID(chi.URLParam(r, "id"), "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body returnStatusBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		updated, err := svc.UpdateStatus(ctx, storeID, requestID, body.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"message": "Request status updated successfully",
			"request": newReturnRequestResponse(*updated),
		})
	}
}
