package api

import (
	"time"

	"rdwrapper/pkg/realdebrid"
)

// Gateway-only error codes, next to the realdebrid ones.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeBadRequest         = "BAD_REQUEST"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	RemoteCode int    `json:"remoteCode,omitempty"`
	Retryable  bool   `json:"retryable"`
}

// Links
type CheckLinkRequest struct {
	URL      string `json:"url" validate:"required,url"`
	Password string `json:"password"`
}

type CheckLinkResponse struct {
	URL       string `json:"url"`
	Supported bool   `json:"supported"`
}

type UnrestrictLinkRequest struct {
	URL           string `json:"url" validate:"required,url"`
	Password      string `json:"password"`
	RemoteTraffic bool   `json:"remoteTraffic"`
}

// Folders
type UnrestrictFolderRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Resolve bool   `json:"resolve"`
}

type FolderEntryResponse struct {
	Link   string                       `json:"link"`
	Result *realdebrid.UnrestrictResult `json:"result,omitempty"`
	Error  *ErrorResponse               `json:"error,omitempty"`
}

type UnrestrictFolderResponse struct {
	URL     string                `json:"url"`
	Count   int                   `json:"count"`
	Failed  int                   `json:"failed"`
	Entries []FolderEntryResponse `json:"entries"`
}

// Account
type AccountResponse struct {
	ID                             int64     `json:"id"`
	Username                       string    `json:"username"`
	Email                          string    `json:"email"`
	FidelityPoints                 int64     `json:"fidelityPoints"`
	LanguageCode                   string    `json:"languageCode"`
	LanguageName                   string    `json:"languageName"`
	AvatarURL                      string    `json:"avatarUrl"`
	AccountType                    string    `json:"accountType"`
	IsPremium                      bool      `json:"isPremium"`
	PremiumSeconds                 int64     `json:"premiumSeconds"`
	PremiumPlanExpiration          time.Time `json:"premiumPlanExpiration"`
	PremiumPlanExpirationTimestamp int64     `json:"premiumPlanExpirationTimestamp"`
}

// TimeResponse carries either the server time text or, when a unix
// timestamp was asked for, Unix. A zero timestamp is still emitted.
type TimeResponse struct {
	Time string `json:"time,omitempty"`
	Unix *int64 `json:"unix,omitempty"`
}

func UnixTimeResponse(ts int64) TimeResponse {
	return TimeResponse{Unix: &ts}
}
