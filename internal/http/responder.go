package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/event-coordinator/internal/application"
)

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errInvalidEventID = errors.New("無効なイベント ID です。")
	errInvalidUserID  = errors.New("無効なユーザー ID です。")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthenticated):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   "認証が必要です。",
		})
	case errors.Is(err, application.ErrForbidden):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "VERSION_CONFLICT",
			Message:   "他の更新と競合しました。最新の状態を取得して再試行してください。",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "同じ内容のリソースが既に存在します。"})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  details,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "name is required":
		return "イベント名は必須です。"
	case "name must be at most 50 characters":
		return "イベント名は 50 文字以内で指定してください。"
	case "description must be at most 1000 characters":
		return "説明は 1000 文字以内で指定してください。"
	case "duration must be at least one minute":
		return "所要時間は 1 分以上で指定してください。"
	case "scheduling method must be fixed or flexible":
		return "日程調整方式が不正です。"
	case "scheduling method is locked on a confirmed event":
		return "確定済みのイベントでは日程調整方式を変更できません。"
	case "flexible events require a time window":
		return "調整期間を指定してください。"
	case "fixed events do not take a time window":
		return "日時固定のイベントには調整期間を指定できません。"
	case "window end must be after window start":
		return "調整期間の終了は開始より後である必要があります。"
	case "window start must be in the future":
		return "調整期間の開始は未来の日時を指定してください。"
	case "scheduled time is required":
		return "開催日時は必須です。"
	case "scheduled time must be positive":
		return "開催日時が不正です。"
	case "scheduled time must fit inside the time window":
		return "開催日時は調整期間内に収まる必要があります。"
	case "scheduled time falls inside a blackout period":
		return "開催日時が除外期間と重なっています。"
	case "cancelled events cannot be modified":
		return "キャンセル済みのイベントは変更できません。"
	case "cancellation cannot be combined with other changes":
		return "キャンセルは他の変更と同時に行えません。"
	case "events cannot return to draft":
		return "公開後に下書きへ戻すことはできません。"
	case "visibility must be draft, public, or private":
		return "公開範囲の指定が不正です。"
	case "unknown status":
		return "ステータスの指定が不正です。"
	case "confirmed events must be cancelled before deletion":
		return "確定済みのイベントは先にキャンセルしてください。"
	case "at least one member is required":
		return "少なくとも 1 名のメンバーが必要です。"
	case "at least one creator is required":
		return "少なくとも 1 名の作成者が必要です。"
	case "the first member must hold the creator role":
		return "最初のメンバーは作成者である必要があります。"
	case "availability must be available, unavailable, or invited":
		return "出欠の指定が不正です。"
	case "padding must not be negative":
		return "バッファ時間は 0 以上で指定してください。"
	case "fixed events do not take blackout periods":
		return "日時固定のイベントには除外期間を指定できません。"
	case "start must be before end":
		return "終了日時は開始日時より後である必要があります。"
	case "start must be positive":
		return "開始日時が不正です。"
	case "email is required":
		return "メールアドレスは必須です。"
	case "email is invalid":
		return "メールアドレスの形式が不正です。"
	case "email is already registered":
		return "このメールアドレスは既に登録されています。"
	case "display name is required":
		return "表示名は必須です。"
	default:
		if strings.HasPrefix(message, "unknown user ids:") {
			return "存在しないユーザー ID が含まれています: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown user ids:"))
		}
		if strings.HasPrefix(message, "cannot move from ") {
			return "指定されたステータスへは変更できません。"
		}
		if strings.HasPrefix(message, "duplicate member ") {
			return "メンバーが重複しています: " + strings.TrimSpace(strings.TrimPrefix(message, "duplicate member "))
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
