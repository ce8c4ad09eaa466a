package controllers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"bulkcertificates/internal/delivery/http/helpers"
	"bulkcertificates/internal/domain"
	"bulkcertificates/internal/render"
)

// maxTemplateUploadBytes bounds uploaded docx templates (10 MiB).
const maxTemplateUploadBytes = 10 << 20

type TemplateController struct {
	Logger  *slog.Logger
	Service domain.TemplateService
}

func NewTemplateController(logger *slog.Logger, svc domain.TemplateService) *TemplateController {
	return &TemplateController{
		Logger:  logger,
		Service: svc,
	}
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTemplateUploadBytes)
	if err := r.ParseMultipartForm(maxTemplateUploadBytes); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest,
			"template upload must be a multipart form of at most 10 MiB")
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing form field \"file\"")
		return nil, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "read uploaded file: "+err.Error())
		return nil, false
	}
	return data, true
}

// UploadBase godoc
// @Summary Upload a base certificate template for a direction
// @Description Multipart form: "file" (docx), "name", optional "description". The new template starts inactive.
// @Tags templates
// @Accept mpfd
// @Produce json
// @Param directionID path string true "Direction ID"
// @Param file formData file true "Template docx"
// @Param name formData string true "Template name"
// @Success 201 {object} helpers.APIResponse "data contains the created template"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /directions/{directionID}/templates [post]
func (c *TemplateController) UploadBase(w http.ResponseWriter, r *http.Request) {
	directionID := r.PathValue("directionID")
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	name := r.FormValue("name")
	if name == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "name is required")
		return
	}
	tmpl, err := c.Service.UploadBase(r.Context(), directionID, name, r.FormValue("description"), data)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "template upload failed", "direction_id", directionID, "err", err)
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, tmpl)
}

// UploadVariant godoc
// @Summary Upload a variant of a base template
// @Tags templates
// @Accept mpfd
// @Produce json
// @Param templateID path string true "Base template ID"
// @Param file formData file true "Variant docx"
// @Param name formData string true "Variant name"
// @Param ordering formData int false "Display order"
// @Success 201 {object} helpers.APIResponse "data contains the created variant"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID}/variants [post]
func (c *TemplateController) UploadVariant(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	data, ok := readUpload(w, r)
	if !ok {
		return
	}
	name := r.FormValue("name")
	if name == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "name is required")
		return
	}
	ordering, _ := strconv.Atoi(r.FormValue("ordering"))
	variant, err := c.Service.UploadVariant(r.Context(), templateID, name, ordering, data)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "variant upload failed", "template_id", templateID, "err", err)
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, variant)
}

// Activate godoc
// @Summary Activate a base template
// @Description Marks this template active and deactivates its direction siblings.
// @Tags templates
// @Produce json
// @Param templateID path string true "Base template ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /templates/{templateID}/activate [post]
func (c *TemplateController) Activate(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	if err := c.Service.ActivateBase(r.Context(), templateID); err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"activated": templateID})
}

// PreviewLayout godoc
// @Summary Render a coordinate-based layout to a preview PDF
// @Description Multipart form: "background" (png/jpeg), "layout" (JSON with positioned text blocks), optional "variables" (JSON object overriding the sample data).
// @Tags templates
// @Accept mpfd
// @Produce application/pdf
// @Param background formData file true "Background image"
// @Param layout formData string true "Layout JSON"
// @Success 200 {file} binary "Preview PDF"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /templates/layout/preview [post]
func (c *TemplateController) PreviewLayout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxTemplateUploadBytes)
	if err := r.ParseMultipartForm(maxTemplateUploadBytes); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest,
			"preview must be a multipart form of at most 10 MiB")
		return
	}
	file, _, err := r.FormFile("background")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing form field \"background\"")
		return
	}
	defer file.Close()
	background, err := io.ReadAll(file)
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "read background image: "+err.Error())
		return
	}

	var cfg render.LayoutConfig
	if err := json.Unmarshal([]byte(r.FormValue("layout")), &cfg); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "layout is not valid JSON: "+err.Error())
		return
	}
	cfg.Background = background

	vars := sampleLayoutVariables()
	if raw := r.FormValue("variables"); raw != "" {
		overrides := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "variables is not a JSON object: "+err.Error())
			return
		}
		for k, v := range overrides {
			vars[k] = v
		}
	}

	pdf, err := render.Compose(cfg, vars)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "layout preview failed", "err", err)
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="preview.pdf"`)
	w.Write(pdf)
}

// sampleLayoutVariables fills a preview with plausible certificate data.
func sampleLayoutVariables() map[string]string {
	return map[string]string{
		"NOMBRE DEL ESTUDIANTE": "ANA MARÍA PÉREZ GÓMEZ",
		"NOMBRE_EVENTO":         "Curso de Ejemplo",
		"TIPO_EVENTO":           "Curso",
		"MODALIDAD":             "Virtual",
		"DURACION":              "40",
		"FECHA_EMISION":         "1 de enero de 2026",
		"DIRECCION":             "Dirección de Ejemplo",
	}
}

// ListVariants godoc
// @Summary List variants of a base template
// @Tags templates
// @Produce json
// @Param templateID path string true "Base template ID"
// @Success 200 {object} helpers.APIResponse "data contains the variants"
// @Router /templates/{templateID}/variants [get]
func (c *TemplateController) ListVariants(w http.ResponseWriter, r *http.Request) {
	templateID := r.PathValue("templateID")
	variants, err := c.Service.ListVariants(r.Context(), templateID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, variants)
}
