package domain

import "errors"

var (
	ErrExpertNotFound = errors.New("expert_not_found")
)
