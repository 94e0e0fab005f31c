package gathering

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/text/language"
)

// ErrForbidden is wrapped by collaborators when the platform denies a
// label mutation for lack of permissions.
var ErrForbidden = errors.New("forbidden")

var (
	localeTags = []language.Tag{language.Japanese, language.AmericanEnglish}
	matcher    = language.NewMatcher(localeTags)
)

// localeIndex picks the message column for a platform locale. Japanese is
// the fallback, as for the servers the bot was written for.
func localeIndex(locale string) int {
	tag, err := language.Parse(locale)
	if err != nil {
		return 0
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return 0
	}
	return idx
}

// Localized holds one message per supported locale: Japanese, then English.
type Localized [2]string

// In returns the message for locale
func (l Localized) In(locale string) string {
	return l[localeIndex(locale)]
}

// DomainError is a user-facing failure of a command
type DomainError struct {
	Status  int
	Code    string
	Message Localized
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message[1])
}

// Localize returns the message shown to a user of the given locale
func (e *DomainError) Localize(locale string) string {
	return e.Message.In(locale)
}

func domainError(status int, code, ja, en string) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: Localized{ja, en},
	}
}

var (
	ErrTimeNotSelected = domainError(http.StatusBadRequest, "time_not_selected",
		"時間が選択されていません",
		"Time is not selected")

	ErrTimeOutOfRange = domainError(http.StatusBadRequest, "time_out_of_range",
		"時間は0から48の間で指定してください",
		"Please select a time between 0 and 48")

	ErrTooManyTimeSlots = domainError(http.StatusUnprocessableEntity, "too_many_time_slots",
		fmt.Sprintf("時間は%d個までしか選択できません", MaxTimeSlots),
		fmt.Sprintf("You can only select up to %d times", MaxTimeSlots))

	ErrTooManyLabels = domainError(http.StatusUnprocessableEntity, "too_many_labels",
		fmt.Sprintf("ロールは%d個までしか登録できません", MaxLabels),
		fmt.Sprintf("You can only register up to %d roles", MaxLabels))

	ErrNotGathering = domainError(http.StatusNotFound, "not_gathering",
		"現在募集している時間はありません",
		"There is no gathering time currently being recruited")

	ErrGuildNotFound = domainError(http.StatusBadRequest, "guild_not_found",
		"サーバー情報を取得できませんでした",
		"Failed to get guild data")

	ErrNoMembersAvailable = domainError(http.StatusNotFound, "no_members_available",
		"メンバーが見つかりませんでした",
		"No members available")

	ErrBotMissingPermissions = domainError(http.StatusForbidden, "bot_missing_permissions",
		"Botに必要な権限がありません",
		"The bot is missing the required permissions")

	ErrCommandInProgress = domainError(http.StatusConflict, "command_in_progress",
		"他のコマンドを実行中です. しばらくしてから再度お試しください",
		"Another command is running for this server. Please try again shortly")

	ErrIgnoredChannel = domainError(http.StatusForbidden, "ignored_channel",
		"このコマンドはこのチャンネルでは実行できません。",
		"This command cannot be executed in this channel.")
)

var unexpectedMessage = Localized{
	"予期しないエラーが発生しました. 時間をおいて再度お試しください.",
	"An unexpected error occurred. Please try again later.",
}
