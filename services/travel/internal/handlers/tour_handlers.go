package handlers

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/diagnosis/jf-travel/internal/http/response"
	"github.com/diagnosis/jf-travel/pkg/logger"
	"github.com/diagnosis/jf-travel/pkg/money"
	"github.com/diagnosis/jf-travel/services/travel/internal/domain"
	"github.com/diagnosis/jf-travel/services/travel/internal/storage"
)

// multipart overhead allowed on top of the image itself
const formOverhead = 1 << 20

func (h *Handlers) ListTours(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TourFilter{
		Category:    strings.TrimSpace(q.Get("category")),
		Country:     strings.TrimSpace(q.Get("country")),
		Destination: strings.TrimSpace(q.Get("destination")),
	}
	if filter.Category != "" {
		if _, ok := domain.ParseTourCategory(filter.Category); !ok {
			response.Validation(w, map[string]string{"category": "The selected category is invalid."})
			return
		}
	}

	tours, err := h.tourService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{
		"tours": tours,
		"total": len(tours),
	})
}

func (h *Handlers) GetTour(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tour")
	if !ok {
		return
	}
	tour, err := h.tourService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"tour": tour})
}

func (h *Handlers) CreateTour(w http.ResponseWriter, r *http.Request) {
	in, upload, cleanup, ok := h.readTourRequest(w, r)
	if !ok {
		return
	}
	defer cleanup()

	tour, err := h.tourService.Create(r.Context(), in, upload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusCreated, map[string]interface{}{"tour": tour})
}

func (h *Handlers) UpdateTour(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tour")
	if !ok {
		return
	}
	in, upload, cleanup, ok := h.readTourRequest(w, r)
	if !ok {
		return
	}
	defer cleanup()

	tour, err := h.tourService.Update(r.Context(), id, in, upload)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"tour": tour})
}

func (h *Handlers) DeleteTour(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tour")
	if !ok {
		return
	}
	if err := h.tourService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"message": "Tour deleted successfully"})
}

func (h *Handlers) QuoteTour(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "tour")
	if !ok {
		return
	}
	travelers := 1
	if v := r.URL.Query().Get("travelers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			response.Validation(w, map[string]string{"travelers": "The travelers must be an integer."})
			return
		}
		travelers = n
	}

	quote, err := h.tourService.Quote(r.Context(), id, travelers, r.URL.Query().Get("currency"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.Success(w, http.StatusOK, map[string]interface{}{"quote": quote})
}

// readTourRequest accepts JSON or multipart/form-data. cleanup must be called
// once the upload has been consumed.
func (h *Handlers) readTourRequest(w http.ResponseWriter, r *http.Request) (*domain.TourInput, *storage.Upload, func(), bool) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var in domain.TourInput
		if !decodeJSON(w, r, &in) {
			return nil, nil, noop, false
		}
		return &in, nil, noop, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formOverhead)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Validation(w, map[string]string{"image": "The image may not be greater than " + strconv.FormatInt(h.maxUpload/1024, 10) + " kilobytes."})
			return nil, nil, noop, false
		}
		response.BadRequest(w, "Invalid form data")
		return nil, nil, noop, false
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	in, errs := tourInputFromForm(r)
	if len(errs) > 0 {
		cleanup()
		response.Validation(w, errs)
		return nil, nil, noop, false
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, cleanup, true
	}
	if err != nil {
		cleanup()
		logger.ErrorContext(r.Context(), "Failed to read uploaded image", "error", err)
		response.InternalError(w, "Internal server error")
		return nil, nil, noop, false
	}

	upload := &storage.Upload{Filename: header.Filename, Size: header.Size, Content: file}
	return in, upload, func() {
		file.Close()
		cleanup()
	}, true
}

func tourInputFromForm(r *http.Request) (*domain.TourInput, domain.ValidationErrors) {
	errs := domain.ValidationErrors{}
	form := r.MultipartForm.Value
	str := func(key string) *string {
		if vs, ok := form[key]; ok && len(vs) > 0 {
			v := vs[0]
			return &v
		}
		return nil
	}
	dec := func(key string) *decimal.Decimal {
		s := str(key)
		if s == nil || strings.TrimSpace(*s) == "" {
			return nil
		}
		d, err := money.ParseAmount(*s)
		if err != nil {
			errs.Add(key, "The "+key+" must be a number.")
			return nil
		}
		return &d
	}
	list := func(key string) []string {
		if vs, ok := form[key+"[]"]; ok {
			return vs
		}
		if vs, ok := form[key]; ok {
			return vs
		}
		return nil
	}

	in := &domain.TourInput{
		Name:        str("name"),
		Destination: str("destination"),
		Country:     str("country"),
		Duration:    str("duration"),
		Category:    str("category"),
		Description: str("description"),
		Price:       dec("price"),
		Rating:      dec("rating"),
		Itinerary:   list("itinerary"),
		Included:    list("included"),
		Excluded:    list("excluded"),
	}
	if s := str("group_size"); s != nil && strings.TrimSpace(*s) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(*s))
		if err != nil {
			errs.Add("group_size", "The group size must be an integer.")
		} else {
			in.GroupSize = &n
		}
	}
	return in, errs
}
