package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/event-coordinator/internal/application"
	"github.com/example/event-coordinator/internal/config"
	"github.com/example/event-coordinator/internal/governance"
	httptransport "github.com/example/event-coordinator/internal/http"
	"github.com/example/event-coordinator/internal/interval"
	"github.com/example/event-coordinator/internal/persistence"
	"github.com/example/event-coordinator/internal/persistence/sqlite"
	"github.com/example/event-coordinator/internal/scheduling"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := storage.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	codeGenerator := func() string { return strings.ToUpper(randomHex(3)) }
	now := time.Now

	eventRepo := newEventRepositoryAdapter(sqlite.NewEventRepository(storage.Pool()))
	userRepo := newUserRepositoryAdapter(sqlite.NewUserRepository(storage.Pool()))

	eventService := application.NewEventServiceWithLogger(
		eventRepo,
		userRepo,
		idGenerator,
		codeGenerator,
		now,
		application.EventServiceOptions{EnforceBlackoutExclusion: cfg.EnforceBlackouts},
		logger,
	)
	userService := application.NewUserService(userRepo, eventService, idGenerator, now)

	eventHandler := httptransport.NewEventHandler(eventService, logger)
	userHandler := httptransport.NewUserHandler(userService, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Events: eventHandler,
		Users:  userHandler,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.WithActor(),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("coordinator API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	stored := toPersistenceEvent(event)
	if stored.Version == 0 {
		stored.Version = 1
	}
	if err := a.repo.CreateEvent(ctx, stored); err != nil {
		return application.Event{}, err
	}
	created, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(created), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

// SaveEvent bumps the aggregate version; the repository rejects the write with
// ErrConflict when the stored version no longer matches expectedVersion.
func (a *eventRepositoryAdapter) SaveEvent(ctx context.Context, event application.Event, expectedVersion int64) (application.Event, error) {
	stored := toPersistenceEvent(event)
	stored.Version = expectedVersion + 1
	if err := a.repo.UpdateEvent(ctx, stored, expectedVersion); err != nil {
		return application.Event{}, err
	}
	saved, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(saved), nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationEvents(models), nil
}

func (a *eventRepositoryAdapter) ListEventsForUser(ctx context.Context, userID string) ([]application.Event, error) {
	models, err := a.repo.ListEventsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toApplicationEvents(models), nil
}

func (a *eventRepositoryAdapter) ConfirmationCodeExists(ctx context.Context, code string) (bool, error) {
	return a.repo.ConfirmationCodeExists(ctx, code)
}

type userRepositoryAdapter struct {
	repo persistence.UserRepository
}

func newUserRepositoryAdapter(repo persistence.UserRepository) *userRepositoryAdapter {
	return &userRepositoryAdapter{repo: repo}
}

func (a *userRepositoryAdapter) CreateUser(ctx context.Context, user application.User) (application.User, error) {
	if err := a.repo.CreateUser(ctx, toPersistenceUser(user)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) UpdateUser(ctx context.Context, user application.User) (application.User, error) {
	if err := a.repo.UpdateUser(ctx, toPersistenceUser(user)); err != nil {
		return application.User{}, err
	}
	stored, err := a.repo.GetUser(ctx, user.ID)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

func (a *userRepositoryAdapter) DeleteUser(ctx context.Context, id string) error {
	return a.repo.DeleteUser(ctx, id)
}

func (a *userRepositoryAdapter) ListUsers(ctx context.Context) ([]application.User, error) {
	models, err := a.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	users := make([]application.User, 0, len(models))
	for _, model := range models {
		users = append(users, toApplicationUser(model))
	}
	return users, nil
}

func (a *userRepositoryAdapter) MissingUserIDs(ctx context.Context, ids []string) ([]string, error) {
	return a.repo.MissingUserIDs(ctx, ids)
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User) persistence.User {
	return persistence.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func toApplicationEvents(models []persistence.Event) []application.Event {
	if len(models) == 0 {
		return nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events
}

func toApplicationEvent(model persistence.Event) application.Event {
	event := application.Event{
		ID:               model.ID,
		Name:             model.Name,
		Description:      model.Description,
		SchedulingMethod: scheduling.Method(model.SchedulingMethod),
		DurationMillis:   model.DurationMillis,
		Status:           application.Status(model.Status),
		Visibility:       application.Visibility(model.Visibility),
		ConfirmationCode: model.ConfirmationCode,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
		Version:          model.Version,
	}
	if model.WindowStart != nil && model.WindowEnd != nil {
		event.TimeWindow = &interval.Range{Start: *model.WindowStart, End: *model.WindowEnd}
	}
	if model.ScheduledTime != nil {
		scheduled := *model.ScheduledTime
		event.ScheduledTime = &scheduled
	}
	for _, member := range model.Members {
		converted := application.Member{
			UserID:       member.UserID,
			Role:         governance.Role(member.Role),
			Availability: governance.Availability(member.Availability),
		}
		if member.PaddingAfterMillis != nil {
			padding := *member.PaddingAfterMillis
			converted.PaddingAfterMillis = &padding
		}
		event.Members = append(event.Members, converted)
	}
	for _, period := range model.Periods {
		r := interval.Range{Start: period.StartMillis, End: period.EndMillis}
		switch period.Kind {
		case persistence.PeriodKindBlackout:
			event.BlackoutPeriods = append(event.BlackoutPeriods, r)
		case persistence.PeriodKindPreferred:
			event.PreferredTimes = append(event.PreferredTimes, r)
		case persistence.PeriodKindDailyStart:
			event.DailyStartConstraints = append(event.DailyStartConstraints, r)
		}
	}
	return event
}

func toPersistenceEvent(event application.Event) persistence.Event {
	stored := persistence.Event{
		ID:               event.ID,
		Name:             event.Name,
		Description:      event.Description,
		SchedulingMethod: string(event.SchedulingMethod),
		DurationMillis:   event.DurationMillis,
		Status:           string(event.Status),
		Visibility:       string(event.Visibility),
		ConfirmationCode: event.ConfirmationCode,
		CreatedAt:        event.CreatedAt,
		UpdatedAt:        event.UpdatedAt,
		Version:          event.Version,
	}
	if event.TimeWindow != nil {
		start, end := event.TimeWindow.Start, event.TimeWindow.End
		stored.WindowStart = &start
		stored.WindowEnd = &end
	}
	if event.ScheduledTime != nil {
		scheduled := *event.ScheduledTime
		stored.ScheduledTime = &scheduled
	}
	for position, member := range event.Members {
		converted := persistence.EventMember{
			UserID:       member.UserID,
			Role:         string(member.Role),
			Availability: string(member.Availability),
			Position:     position,
		}
		if member.PaddingAfterMillis != nil {
			padding := *member.PaddingAfterMillis
			converted.PaddingAfterMillis = &padding
		}
		stored.Members = append(stored.Members, converted)
	}
	stored.Periods = append(stored.Periods, toPeriodRows(persistence.PeriodKindBlackout, event.BlackoutPeriods)...)
	stored.Periods = append(stored.Periods, toPeriodRows(persistence.PeriodKindPreferred, event.PreferredTimes)...)
	stored.Periods = append(stored.Periods, toPeriodRows(persistence.PeriodKindDailyStart, event.DailyStartConstraints)...)
	return stored
}

func toPeriodRows(kind string, ranges []interval.Range) []persistence.EventPeriod {
	if len(ranges) == 0 {
		return nil
	}
	rows := make([]persistence.EventPeriod, 0, len(ranges))
	for _, r := range ranges {
		rows = append(rows, persistence.EventPeriod{Kind: kind, StartMillis: r.Start, EndMillis: r.End})
	}
	return rows
}
