package controllers

import (
	"log/slog"
	"net/http"

	"bulkcertificates/internal/delivery/http/helpers"
	"bulkcertificates/internal/domain"
)

type CampaignController struct {
	Logger  *slog.Logger
	Service domain.CampaignService
}

func NewCampaignController(logger *slog.Logger, svc domain.CampaignService) *CampaignController {
	return &CampaignController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateCampaignRequest is the request body for POST /events/{eventID}/campaigns.
type CreateCampaignRequest struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Validate implements Validator.
func (c CreateCampaignRequest) Validate() []string {
	var errs []string
	if c.Subject == "" {
		errs = append(errs, "subject is required")
	}
	if c.Message == "" {
		errs = append(errs, "message is required")
	}
	return errs
}

// Create godoc
// @Summary Create an email campaign from an event's roster
// @Tags campaigns
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID"
// @Param campaign body CreateCampaignRequest true "Campaign content"
// @Success 201 {object} helpers.APIResponse "data contains the draft campaign"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/campaigns [post]
func (c *CampaignController) Create(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	var req CreateCampaignRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	campaign, err := c.Service.CreateFromEvent(r.Context(), eventID, req.Name, req.Subject, req.Message)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "create campaign failed", "event_id", eventID, "err", err)
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, campaign)
}

// GetCampaignResponse is the response body for GET /campaigns/{campaignID}.
type GetCampaignResponse struct {
	Campaign   *domain.Campaign            `json:"campaign"`
	Recipients []*domain.CampaignRecipient `json:"recipients"`
}

// Get godoc
// @Summary Get a campaign with per-recipient delivery state
// @Tags campaigns
// @Produce json
// @Param campaignID path string true "Campaign ID"
// @Success 200 {object} helpers.APIResponse "data contains campaign and recipients"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /campaigns/{campaignID} [get]
func (c *CampaignController) Get(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaignID")
	campaign, recipients, err := c.Service.Get(r.Context(), campaignID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, GetCampaignResponse{Campaign: campaign, Recipients: recipients})
}

// SendResultResponse summarizes a campaign delivery run.
type SendResultResponse struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Send godoc
// @Summary Send a campaign to its pending recipients
// @Tags campaigns
// @Produce json
// @Param campaignID path string true "Campaign ID"
// @Success 200 {object} helpers.APIResponse "data contains sent/failed counts"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 429 {object} helpers.APIResponse "error.code: quota_exceeded"
// @Router /campaigns/{campaignID}/send [post]
func (c *CampaignController) Send(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaignID")
	sent, failed, err := c.Service.Send(r.Context(), campaignID)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "campaign send failed", "campaign_id", campaignID, "err", err)
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SendResultResponse{Sent: sent, Failed: failed})
}

// RetryFailed godoc
// @Summary Retry the failed recipients of a campaign
// @Tags campaigns
// @Produce json
// @Param campaignID path string true "Campaign ID"
// @Success 200 {object} helpers.APIResponse "data contains sent/failed counts"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /campaigns/{campaignID}/retry [post]
func (c *CampaignController) RetryFailed(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaignID")
	sent, failed, err := c.Service.RetryFailed(r.Context(), campaignID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, SendResultResponse{Sent: sent, Failed: failed})
}
