package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/event-coordinator/internal/application"
	"github.com/example/event-coordinator/internal/governance"
	"github.com/example/event-coordinator/internal/interval"
	"github.com/example/event-coordinator/internal/scheduling"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, []application.ScheduleWarning, error)
	GetEvent(ctx context.Context, principal application.Principal, eventID string) (application.Event, []application.ScheduleWarning, error)
	ListEvents(ctx context.Context, principal application.Principal) ([]application.Event, []application.ScheduleWarning, error)
	UpdateEvent(ctx context.Context, params application.UpdateEventParams) (application.Event, []application.ScheduleWarning, error)
	DeleteEvent(ctx context.Context, principal application.Principal, eventID string) error
	UpdateOwnMemberSettings(ctx context.Context, principal application.Principal, eventID string, input application.MemberSettingsInput) (application.Event, error)
	AddBlackoutPeriod(ctx context.Context, principal application.Principal, eventID string, r interval.Range) (application.Event, error)
	RemoveBlackoutPeriod(ctx context.Context, principal application.Principal, eventID string, r interval.Range) (application.Event, error)
}

type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	var req eventCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "principal_id", principal.UserID).ErrorContext(r.Context(), "failed to decode event request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	event, warnings, err := h.service.CreateEvent(r.Context(), application.CreateEventParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, warnings, http.StatusCreated)
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, warnings, err := h.service.GetEvent(r.Context(), principal, eventID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, warnings, http.StatusOK)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	events, warnings, err := h.service.ListEvents(r.Context(), principal)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	response := listEventsResponse{
		Events:   toEventDTOs(events),
		Warnings: toWarningDTOs(warnings),
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, response)
}

func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req eventPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, warnings, err := h.service.UpdateEvent(r.Context(), application.UpdateEventParams{
		Principal: principal,
		EventID:   eventID,
		Patch:     req.toPatch(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, warnings, http.StatusOK)
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteEvent(r.Context(), principal, eventID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *EventHandler) UpdateMembership(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req membershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := h.service.UpdateOwnMemberSettings(r.Context(), principal, eventID, req.toInput())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, nil, http.StatusOK)
}

func (h *EventHandler) AddBlackout(w http.ResponseWriter, r *http.Request) {
	h.mutateBlackout(w, r, h.serviceAdd)
}

func (h *EventHandler) RemoveBlackout(w http.ResponseWriter, r *http.Request) {
	h.mutateBlackout(w, r, h.serviceRemove)
}

func (h *EventHandler) serviceAdd(ctx context.Context, principal application.Principal, eventID string, rng interval.Range) (application.Event, error) {
	return h.service.AddBlackoutPeriod(ctx, principal, eventID, rng)
}

func (h *EventHandler) serviceRemove(ctx context.Context, principal application.Principal, eventID string, rng interval.Range) (application.Event, error) {
	return h.service.RemoveBlackoutPeriod(ctx, principal, eventID, rng)
}

func (h *EventHandler) mutateBlackout(w http.ResponseWriter, r *http.Request, apply func(context.Context, application.Principal, string, interval.Range) (application.Event, error)) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	eventID, ok := EventIDFromContext(r.Context())
	if !ok || strings.TrimSpace(eventID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidEventID)
		return
	}

	var req rangeDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	event, err := apply(r.Context(), principal, eventID, req.toRange())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.renderEvent(r.Context(), w, event, nil, http.StatusOK)
}

func (h *EventHandler) renderEvent(ctx context.Context, w http.ResponseWriter, event application.Event, warnings []application.ScheduleWarning, status int) {
	payload := eventResponse{
		Event:    toEventDTO(event),
		Warnings: toWarningDTOs(warnings),
	}
	h.responder.writeJSON(ctx, w, status, payload)
}

type rangeDTO struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (r rangeDTO) toRange() interval.Range {
	return interval.Range{Start: r.Start, End: r.End}
}

func toRangeDTO(r interval.Range) rangeDTO {
	return rangeDTO{Start: r.Start, End: r.End}
}

func toRanges(dtos []rangeDTO) []interval.Range {
	if dtos == nil {
		return nil
	}
	out := make([]interval.Range, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.toRange())
	}
	return out
}

func toRangeDTOs(ranges []interval.Range) []rangeDTO {
	if len(ranges) == 0 {
		return nil
	}
	out := make([]rangeDTO, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, toRangeDTO(r))
	}
	return out
}

type memberDTO struct {
	UserID             string `json:"user_id"`
	Role               string `json:"role"`
	Availability       string `json:"availability"`
	PaddingAfterMillis *int64 `json:"padding_after_millis,omitempty"`
}

func (m memberDTO) toMember() application.Member {
	return application.Member{
		UserID:             strings.TrimSpace(m.UserID),
		Role:               governance.Role(m.Role),
		Availability:       governance.Availability(m.Availability),
		PaddingAfterMillis: m.PaddingAfterMillis,
	}
}

func toMembers(dtos []memberDTO) []application.Member {
	if dtos == nil {
		return nil
	}
	out := make([]application.Member, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, dto.toMember())
	}
	return out
}

func toMemberDTOs(members []application.Member) []memberDTO {
	out := make([]memberDTO, 0, len(members))
	for _, member := range members {
		out = append(out, memberDTO{
			UserID:             member.UserID,
			Role:               string(member.Role),
			Availability:       string(member.Availability),
			PaddingAfterMillis: member.PaddingAfterMillis,
		})
	}
	return out
}

type eventCreateRequest struct {
	Name                  string      `json:"name"`
	Description           string      `json:"description"`
	SchedulingMethod      string      `json:"scheduling_method"`
	DurationMillis        int64       `json:"duration_millis"`
	TimeWindow            *rangeDTO   `json:"time_window"`
	ScheduledTime         *int64      `json:"scheduled_time"`
	Visibility            string      `json:"visibility"`
	BlackoutPeriods       []rangeDTO  `json:"blackout_periods"`
	PreferredTimes        []rangeDTO  `json:"preferred_times"`
	DailyStartConstraints []rangeDTO  `json:"daily_start_constraints"`
	Members               []memberDTO `json:"members"`
}

func (r eventCreateRequest) toInput() application.EventInput {
	var window *interval.Range
	if r.TimeWindow != nil {
		rng := r.TimeWindow.toRange()
		window = &rng
	}
	return application.EventInput{
		Name:                  strings.TrimSpace(r.Name),
		Description:           r.Description,
		SchedulingMethod:      scheduling.Method(r.SchedulingMethod),
		DurationMillis:        r.DurationMillis,
		TimeWindow:            window,
		ScheduledTime:         r.ScheduledTime,
		Visibility:            application.Visibility(r.Visibility),
		BlackoutPeriods:       toRanges(r.BlackoutPeriods),
		PreferredTimes:        toRanges(r.PreferredTimes),
		DailyStartConstraints: toRanges(r.DailyStartConstraints),
		InitialMembers:        toMembers(r.Members),
	}
}

type eventPatchRequest struct {
	Name                  *string      `json:"name"`
	Description           *string      `json:"description"`
	SchedulingMethod      *string      `json:"scheduling_method"`
	DurationMillis        *int64       `json:"duration_millis"`
	TimeWindow            *rangeDTO    `json:"time_window"`
	Status                *string      `json:"status"`
	ScheduledTime         *int64       `json:"scheduled_time"`
	Visibility            *string      `json:"visibility"`
	BlackoutPeriods       *[]rangeDTO  `json:"blackout_periods"`
	PreferredTimes        *[]rangeDTO  `json:"preferred_times"`
	DailyStartConstraints *[]rangeDTO  `json:"daily_start_constraints"`
	Members               *[]memberDTO `json:"members"`
}

func (r eventPatchRequest) toPatch() application.EventPatch {
	patch := application.EventPatch{
		Name:           r.Name,
		Description:    r.Description,
		DurationMillis: r.DurationMillis,
		ScheduledTime:  r.ScheduledTime,
	}
	if r.SchedulingMethod != nil {
		method := scheduling.Method(*r.SchedulingMethod)
		patch.SchedulingMethod = &method
	}
	if r.TimeWindow != nil {
		window := r.TimeWindow.toRange()
		patch.TimeWindow = &window
	}
	if r.Status != nil {
		status := application.Status(*r.Status)
		patch.Status = &status
	}
	if r.Visibility != nil {
		visibility := application.Visibility(*r.Visibility)
		patch.Visibility = &visibility
	}
	if r.BlackoutPeriods != nil {
		ranges := toRanges(*r.BlackoutPeriods)
		patch.BlackoutPeriods = &ranges
	}
	if r.PreferredTimes != nil {
		ranges := toRanges(*r.PreferredTimes)
		patch.PreferredTimes = &ranges
	}
	if r.DailyStartConstraints != nil {
		ranges := toRanges(*r.DailyStartConstraints)
		patch.DailyStartConstraints = &ranges
	}
	if r.Members != nil {
		members := toMembers(*r.Members)
		patch.Members = &members
	}
	return patch
}

type membershipRequest struct {
	Availability       *string `json:"availability"`
	PaddingAfterMillis *int64  `json:"padding_after_millis"`
	ClearPadding       bool    `json:"clear_padding"`
}

func (r membershipRequest) toInput() application.MemberSettingsInput {
	input := application.MemberSettingsInput{
		PaddingAfterMillis: r.PaddingAfterMillis,
		ClearPadding:       r.ClearPadding,
	}
	if r.Availability != nil {
		availability := governance.Availability(*r.Availability)
		input.Availability = &availability
	}
	return input
}

type eventResponse struct {
	Event    eventDTO             `json:"event"`
	Warnings []scheduleWarningDTO `json:"warnings,omitempty"`
}

type listEventsResponse struct {
	Events   []eventDTO           `json:"events"`
	Warnings []scheduleWarningDTO `json:"warnings,omitempty"`
}

type eventDTO struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Description           string      `json:"description"`
	SchedulingMethod      string      `json:"scheduling_method"`
	DurationMillis        int64       `json:"duration_millis"`
	TimeWindow            *rangeDTO   `json:"time_window,omitempty"`
	Status                string      `json:"status"`
	ScheduledTime         *int64      `json:"scheduled_time,omitempty"`
	Visibility            string      `json:"visibility"`
	BlackoutPeriods       []rangeDTO  `json:"blackout_periods,omitempty"`
	PreferredTimes        []rangeDTO  `json:"preferred_times,omitempty"`
	DailyStartConstraints []rangeDTO  `json:"daily_start_constraints,omitempty"`
	ConfirmationCode      string      `json:"confirmation_code,omitempty"`
	Members               []memberDTO `json:"members"`
	CreatedAt             string      `json:"created_at"`
	UpdatedAt             string      `json:"updated_at"`
	Version               int64       `json:"version"`
}

func toEventDTO(event application.Event) eventDTO {
	var window *rangeDTO
	if event.TimeWindow != nil {
		dto := toRangeDTO(*event.TimeWindow)
		window = &dto
	}
	return eventDTO{
		ID:                    event.ID,
		Name:                  event.Name,
		Description:           event.Description,
		SchedulingMethod:      string(event.SchedulingMethod),
		DurationMillis:        event.DurationMillis,
		TimeWindow:            window,
		Status:                string(event.Status),
		ScheduledTime:         event.ScheduledTime,
		Visibility:            string(event.Visibility),
		BlackoutPeriods:       toRangeDTOs(event.BlackoutPeriods),
		PreferredTimes:        toRangeDTOs(event.PreferredTimes),
		DailyStartConstraints: toRangeDTOs(event.DailyStartConstraints),
		ConfirmationCode:      event.ConfirmationCode,
		Members:               toMemberDTOs(event.Members),
		CreatedAt:             event.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:             event.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Version:               event.Version,
	}
}

func toEventDTOs(events []application.Event) []eventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]eventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toEventDTO(event))
	}
	return out
}

type scheduleWarningDTO struct {
	EventID     string   `json:"event_id"`
	Type        string   `json:"type"`
	Range       rangeDTO `json:"range"`
	UserID      string   `json:"user_id,omitempty"`
	WithEventID string   `json:"with_event_id,omitempty"`
}

func toWarningDTOs(warnings []application.ScheduleWarning) []scheduleWarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]scheduleWarningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, scheduleWarningDTO{
			EventID:     warning.EventID,
			Type:        warning.Type,
			Range:       toRangeDTO(warning.Range),
			UserID:      warning.UserID,
			WithEventID: warning.WithEventID,
		})
	}
	return out
}
