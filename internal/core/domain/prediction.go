package domain

// ContentTypeImage is the only request content type the inference handler accepts.
const ContentTypeImage = "application/x-image"

// Prediction is the response record of the inference handler.
type Prediction struct {
	PredictedClass int `json:"predicted_class"`
}
