package models

import "time"

// Result is the structured outcome every entry point returns.
type Result struct {
	Success bool   `json:"success"`
	Count   int    `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Failure wraps an error message into an unsuccessful Result.
func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// RunReport holds the computed summary of one suggestion discovery run.
type RunReport struct {
	RunID          string         `json:"runId"`
	PropertyID     int64          `json:"propertyId"`
	Strategy       string         `json:"strategy"`
	StartedAt      time.Time      `json:"startedAt"`
	Elapsed        time.Duration  `json:"elapsed"`
	Fetched        int            `json:"fetched"`
	Inserted       int            `json:"inserted"`
	Duplicates     int            `json:"duplicates"`
	ProviderErrors int            `json:"providerErrors"`
	ByCategory     map[string]int `json:"byCategory"`
	BySource       map[string]int `json:"bySource"`
	Suggestions    []Suggestion   `json:"suggestions"`
	ArchiveKey     string         `json:"archiveKey,omitempty"`
}
