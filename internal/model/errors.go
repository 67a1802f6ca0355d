// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, share, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTaskNotFound          = "TASK_NOT_FOUND"
	ErrCodeTaskNameEmpty         = "TASK_NAME_EMPTY"
	ErrCodeInvalidStatus         = "INVALID_STATUS"
	ErrCodeInvalidSortKey        = "INVALID_SORT_KEY"
	ErrCodeInvalidDeadline       = "INVALID_DEADLINE"
	ErrCodeMessageEmpty          = "MESSAGE_EMPTY"
	ErrCodeLinkNotFound          = "LINK_NOT_FOUND"
	ErrCodeLinkExpired           = "LINK_EXPIRED"
	ErrCodeLinkAlreadyUsed       = "LINK_ALREADY_USED"
	ErrCodeLinkAccessFailed      = "LINK_ACCESS_FAILED"
	ErrCodeSharedTaskNotFound    = "SHARED_TASK_NOT_FOUND"
	ErrCodeSharedMessageNotFound = "SHARED_MESSAGE_NOT_FOUND"
	ErrCodeReplyEmpty            = "REPLY_EMPTY"
	ErrCodeReplyInvalidLink      = "REPLY_INVALID_LINK"
	ErrCodeReplyLinkExpired      = "REPLY_LINK_EXPIRED"
	ErrCodeReplyLimitReached     = "REPLY_LIMIT_REACHED"
	ErrCodeReplySaveFailed       = "REPLY_SAVE_FAILED"
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
)

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewTaskNameEmptyError はタスク名が空の場合のエラーを生成する。
func NewTaskNameEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeTaskNameEmpty,
		Message:  "タスク名を入力してください。",
		Category: "validation",
		Action:   "1文字以上のタスク名を指定してください。",
	}
}

// NewInvalidStatusError は無効なタスク状態エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには To do、In progress、Done のいずれかを指定してください。",
	}
}

// NewInvalidSortKeyError は無効なソートキーエラーを生成する。
func NewInvalidSortKeyError(sort string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSortKey,
		Message:  fmt.Sprintf("無効なソートキーです: %s", sort),
		Category: "validation",
		Action:   "ソートキーには manual、created、deadline、name のいずれかを指定してください。",
	}
}

// NewInvalidDeadlineError は無効な締切日エラーを生成する。
func NewInvalidDeadlineError(deadline string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDeadline,
		Message:  fmt.Sprintf("無効な締切日です: %s", deadline),
		Category: "validation",
		Action:   "締切日は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewMessageEmptyError はメッセージ内容が空の場合のエラーを生成する。
func NewMessageEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeMessageEmpty,
		Message:  "メッセージ内容を入力してください。",
		Category: "validation",
		Action:   "1文字以上のメッセージを入力してください。",
	}
}

// NewLinkNotFoundError は共有リンクが存在しない場合のエラーを生成する。
// 未発行のトークンと削除済みのトークンを区別しない汎用メッセージを返す。
func NewLinkNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeLinkNotFound,
		Message:  "お探しのページが見つかりません。",
		Category: "share",
		Action:   "URLが正しいか確認してください。",
	}
}

// NewLinkExpiredError は共有リンクの有効期限切れエラーを生成する。
func NewLinkExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeLinkExpired,
		Message:  "このリンクは有効期限が切れています。",
		Category: "share",
		Action:   "共有元に新しいリンクの発行を依頼してください。",
	}
}

// NewLinkAlreadyUsedError は共有リンクが使用済みの場合のエラーを生成する。
func NewLinkAlreadyUsedError() *APIError {
	return &APIError{
		Code:     ErrCodeLinkAlreadyUsed,
		Message:  "このリンクは既にメッセージの閲覧に使用されています。",
		Category: "share",
		Action:   "再度閲覧する場合は、共有元に新しいリンクの発行を依頼してください。",
	}
}

// NewLinkAccessFailedError はリンク処理中の内部エラーを生成する。
func NewLinkAccessFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeLinkAccessFailed,
		Message:  "リンクへのアクセス中にエラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSharedTaskNotFoundError は共有元タスクが削除済みの場合のエラーを生成する。
func NewSharedTaskNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSharedTaskNotFound,
		Message:  "共有元のタスクが見つかりません。",
		Category: "share",
		Action:   "共有元にタスクの状態を確認してください。",
	}
}

// NewSharedMessageNotFoundError は共有対象メッセージが削除済みの場合のエラーを生成する。
func NewSharedMessageNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSharedMessageNotFound,
		Message:  "共有されたメッセージが見つかりません。",
		Category: "share",
		Action:   "共有元にメッセージの状態を確認してください。",
	}
}

// NewReplyEmptyError は返信内容が空の場合のエラーを生成する。
func NewReplyEmptyError() *APIError {
	return &APIError{
		Code:     ErrCodeReplyEmpty,
		Message:  "返信内容を入力してください。",
		Category: "validation",
		Action:   "1文字以上の返信を入力してください。",
	}
}

// NewReplyInvalidLinkError は無効なリンクへの返信エラーを生成する。
// リンクが未発行なのか削除済みなのかは明かさない。
func NewReplyInvalidLinkError() *APIError {
	return &APIError{
		Code:     ErrCodeReplyInvalidLink,
		Message:  "返信を送信できませんでした。リンクが無効です。",
		Category: "share",
		Action:   "共有元に新しいリンクの発行を依頼してください。",
	}
}

// NewReplyLinkExpiredError は期限切れリンクへの返信エラーを生成する。
func NewReplyLinkExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeReplyLinkExpired,
		Message:  "返信を送信できませんでした。リンクの有効期限が切れています。",
		Category: "share",
		Action:   "共有元に新しいリンクの発行を依頼してください。",
	}
}

// NewReplyLimitReachedError は返信数上限エラーを生成する。
func NewReplyLimitReachedError() *APIError {
	return &APIError{
		Code:     ErrCodeReplyLimitReached,
		Message:  "この共有リンクからの返信数が上限に達しています。",
		Category: "share",
		Action:   "追加の返信が必要な場合は、共有元に新しいリンクの発行を依頼してください。",
	}
}

// NewReplySaveFailedError は返信の保存失敗エラーを生成する。
func NewReplySaveFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeReplySaveFailed,
		Message:  "返信の保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
