package http

import (
	stderrors "errors"

	"github.com/go-playground/validator/v10"

	"giveaway-miniapp/internal/common/errors"
	catalogmodels "giveaway-miniapp/internal/features/catalog/models"
	catalogrepo "giveaway-miniapp/internal/features/catalog/repository"
	participation "giveaway-miniapp/internal/features/participation/service"
	"giveaway-miniapp/internal/features/tasks"
)

// toAppError сопоставляет ошибки домена с кодами API
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	switch {
	case stderrors.Is(err, participation.ErrLedgerUnreachable):
		return errors.Wrap(err, errors.ErrCodeLedgerUnreachable, "ledger unreachable")
	case stderrors.Is(err, participation.ErrEntryRecordWriteFailed):
		return errors.Wrap(err, errors.ErrCodeEntryRecordWriteFailed, "entry record write failed")
	case stderrors.Is(err, participation.ErrDoubleJoinAttempted):
		return errors.Wrap(err, errors.ErrCodeDoubleJoinAttempted, err.Error())
	case stderrors.Is(err, participation.ErrInvalidGiveawayID),
		stderrors.Is(err, catalogrepo.ErrGiveawayNotFound):
		return errors.Wrap(err, errors.ErrCodeInvalidGiveawayID, "giveaway not found")
	case stderrors.Is(err, tasks.ErrInvalidTaskKind):
		return errors.Wrap(err, errors.ErrCodeInvalidTaskKind, err.Error())
	case stderrors.Is(err, tasks.ErrNoSession):
		return errors.Wrap(err, errors.ErrCodeNoSession, "open the giveaway first")
	case stderrors.Is(err, catalogmodels.ErrInvalidPhase),
		stderrors.Is(err, catalogmodels.ErrInvalidWinnersCount),
		stderrors.Is(err, catalogmodels.ErrNoPhaseMarker):
		return errors.Wrap(err, errors.ErrCodeValidation, err.Error())
	default:
		return errors.Wrap(err, errors.ErrCodeInternal, "Internal server error")
	}
}

// bindingError превращает ошибки gin binding в VALIDATION_ERROR / INVALID_TASK_KIND
func bindingError(err error) *errors.AppError {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == taskKindTag {
			return errors.New(errors.ErrCodeInvalidTaskKind, "unknown task kind").
				WithDetail("kind", fe.Value())
		}
		return errors.NewValidationError(fe.Field(), fe.Tag())
	}
	return errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request")
}
