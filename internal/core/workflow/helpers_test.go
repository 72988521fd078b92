package workflow

import (
	"time"

	"hpc-portal/pkg/constants"
)

func mustDate(s string) time.Time {
	d, err := time.Parse(constants.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}
