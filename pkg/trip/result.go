package trip

// Result is the trip request with the three agent answers merged in.
// A nil answer marks an agent whose run could not be settled.
type Result struct {
	ID string `json:"id,omitempty"`
	Request
	Weather *string `json:"weather"`
	Flight  *string `json:"flight"`
	Hotel   *string `json:"hotel"`
}

// NewResult spreads the request fields and attaches the answers.
func NewResult(req Request, weather, flight, hotel *string) Result {
	return Result{
		Request: req,
		Weather: weather,
		Flight:  flight,
		Hotel:   hotel,
	}
}

// Complete reports whether every agent produced an answer.
func (r *Result) Complete() bool {
	return r.Weather != nil && r.Flight != nil && r.Hotel != nil
}
