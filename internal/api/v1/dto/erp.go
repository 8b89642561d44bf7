package dto

import "encoding/json"

type ERPCheckResponse struct {
	Exists bool            `json:"exists"`
	Data   json.RawMessage `json:"data,omitempty" swaggertype:"object"`
}
