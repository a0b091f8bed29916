package types

// ConsoleInterface defines user-facing console output.
type ConsoleInterface interface {
	LogInfo(format string, a ...interface{})
	LogWarning(format string, a ...interface{})
	LogError(format string, a ...interface{})
	LogSuccess(format string, a ...interface{})

	Status(message string) StatusHandle
	ProgressWithTotal(title string, total int) ProgressHandle

	DisplayTrendBars(title string, counts []MonthlyCount)
}

// StatusHandle updates a status message.
type StatusHandle interface {
	Update(message string)
	Stop()
}

// ProgressHandle advances a progress bar.
type ProgressHandle interface {
	Increment()
	Stop()
}

// MonthlyCount is one point of a monthly trend chart.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}
