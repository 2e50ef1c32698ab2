package handler

import "errors"

var (
	ErrFailedToDecodeRequestBody = errors.New("failed to decode request body")
	ErrInvalidTileAddress        = errors.New("invalid tile address")
	ErrPayloadTooLarge           = errors.New("model exceeds the upload size limit")
)
