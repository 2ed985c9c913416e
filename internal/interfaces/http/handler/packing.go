package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	shippingapp "github.com/prepflow/backend/internal/application/shipping"
)

// PackingHandler handles the inbound packing pipeline API endpoints
type PackingHandler struct {
	BaseHandler
	optionService     *shippingapp.PackingOptionService
	groupService      *shippingapp.PackingGroupService
	submissionService *shippingapp.SubmissionService
	statusService     *shippingapp.StatusService
}

// NewPackingHandler creates a new PackingHandler
func NewPackingHandler(
	optionService *shippingapp.PackingOptionService,
	groupService *shippingapp.PackingGroupService,
	submissionService *shippingapp.SubmissionService,
	statusService *shippingapp.StatusService,
) *PackingHandler {
	return &PackingHandler{
		optionService:     optionService,
		groupService:      groupService,
		submissionService: submissionService,
		statusService:     statusService,
	}
}

// shipmentRequestID parses the :id path parameter
func (h *PackingHandler) shipmentRequestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid shipment request ID format")
		return uuid.Nil, false
	}
	return id, true
}

// ResolveOptions godoc
// @ID           resolvePackingOptions
// @Summary      Resolve packing options
// @Description  Lists remote packing options for the shipment request's inbound plan and confirms one
// @Tags         packing
// @Accept       json
// @Produce      json
// @Param        id path string true "Shipment Request ID" format(uuid)
// @Param        request body shippingapp.ResolveOptionsRequest true "Resolution parameters"
// @Success      200 {object} APIResponse[shippingapp.ResolveOptionsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /shipments/{id}/packing/resolve-options [post]
func (h *PackingHandler) ResolveOptions(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	requestID, ok := h.shipmentRequestID(c)
	if !ok {
		return
	}

	var req shippingapp.ResolveOptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.optionService.Resolve(c.Request.Context(), tenantID, requestID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// HydrateGroups godoc
// @ID           hydratePackingGroups
// @Summary      Hydrate packing groups
// @Description  Fetches item membership for every packing group, applies caller edits and reconciles quantities against confirmed intake
// @Tags         packing
// @Accept       json
// @Produce      json
// @Param        id path string true "Shipment Request ID" format(uuid)
// @Param        request body shippingapp.HydrateGroupsRequest true "Group edits"
// @Success      200 {object} APIResponse[shippingapp.HydrateGroupsResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /shipments/{id}/packing/hydrate-groups [post]
func (h *PackingHandler) HydrateGroups(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	requestID, ok := h.shipmentRequestID(c)
	if !ok {
		return
	}

	var req shippingapp.HydrateGroupsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.groupService.Hydrate(c.Request.Context(), tenantID, requestID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Submit godoc
// @ID           submitPackingInformation
// @Summary      Submit packing information
// @Description  Builds per-group package groupings in imperial units, submits them to the seller platform and verifies the operation completed
// @Tags         packing
// @Accept       json
// @Produce      json
// @Param        id path string true "Shipment Request ID" format(uuid)
// @Param        request body shippingapp.SubmitPackingRequest true "Final group edits and placement flag"
// @Success      200 {object} APIResponse[shippingapp.SubmitPackingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /shipments/{id}/packing/submit [post]
func (h *PackingHandler) Submit(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	requestID, ok := h.shipmentRequestID(c)
	if !ok {
		return
	}

	var req shippingapp.SubmitPackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.submissionService.Submit(c.Request.Context(), tenantID, requestID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Status godoc
// @ID           getPackingStatus
// @Summary      Get packing progress
// @Description  Returns the saved snapshot view of the shipment request's packing progress
// @Tags         packing
// @Produce      json
// @Param        id path string true "Shipment Request ID" format(uuid)
// @Success      200 {object} APIResponse[shippingapp.StatusResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /shipments/{id}/packing/status [get]
func (h *PackingHandler) Status(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	requestID, ok := h.shipmentRequestID(c)
	if !ok {
		return
	}

	resp, err := h.statusService.Status(c.Request.Context(), tenantID, requestID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
