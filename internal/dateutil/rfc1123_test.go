package dateutil_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ankit-kulkarni/server_rs/internal/dateutil"
)

func TestFormatRFC1123_UnixEpoch(t *testing.T) {
	is := assert.New(t)
	is.Equal("Thu, 01 Jan 1970 00:00:00 GMT", dateutil.FormatRFC1123(time.Unix(0, 0)))
}

func TestFormatRFC1123_ConvertsToUTC(t *testing.T) {
	is := assert.New(t)

	loc := time.FixedZone("EST", -5*60*60)
	local := time.Date(2024, time.March, 1, 10, 0, 0, 0, loc)
	is.Equal("Fri, 01 Mar 2024 15:00:00 GMT", dateutil.FormatRFC1123(local))
}
