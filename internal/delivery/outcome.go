package delivery

// Outcome classifies the result of one send attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNetworkError
	OutcomeTimeout
	OutcomeConfigMissing
	outcomeCount
)

var outcomeNames = [outcomeCount]string{
	OutcomeSuccess:       "success",
	OutcomeNetworkError:  "network_error",
	OutcomeTimeout:       "timeout",
	OutcomeConfigMissing: "config_missing",
}

func (o Outcome) String() string {
	if o < 0 || o >= outcomeCount {
		return "unknown"
	}
	return outcomeNames[o]
}
