package contextkeys

import "context"

type updateTypeKey struct{}
type userInfoKey struct{}
type callbackDataKey struct{}

type UpdateType string

const (
	UpdateTypeCommand     UpdateType = "command"
	UpdateTypeText        UpdateType = "text"
	UpdateTypePhoto       UpdateType = "photo"
	UpdateTypeClickButton UpdateType = "clickButton"
	UpdateTypePreCheckout UpdateType = "preCheckout"
	UpdateTypePayment     UpdateType = "payment"
	UpdateTypeUnknown     UpdateType = "unknown"
)

// UserInfo is the identity extracted from an incoming update.
type UserInfo struct {
	UserID int64
	ChatID int64
	Handle string
	Lang   string
}

func WithUpdateType(ctx context.Context, t UpdateType) context.Context {
	return context.WithValue(ctx, updateTypeKey{}, t)
}

func GetUpdateType(ctx context.Context) (UpdateType, bool) {
	v := ctx.Value(updateTypeKey{})
	if v == nil {
		return UpdateTypeUnknown, false
	}
	return v.(UpdateType), true
}

func WithUserInfo(ctx context.Context, info UserInfo) context.Context {
	return context.WithValue(ctx, userInfoKey{}, info)
}

func GetUserInfo(ctx context.Context) (UserInfo, bool) {
	v := ctx.Value(userInfoKey{})
	if v == nil {
		return UserInfo{}, false
	}
	return v.(UserInfo), true
}

func WithCallbackData(ctx context.Context, data string) context.Context {
	return context.WithValue(ctx, callbackDataKey{}, data)
}

func GetCallbackData(ctx context.Context) (string, bool) {
	v := ctx.Value(callbackDataKey{})
	if v == nil {
		return "", false
	}
	return v.(string), true
}
