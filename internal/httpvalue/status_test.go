package httpvalue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ankit-kulkarni/server_rs/internal/httpvalue"
)

func TestStatusCode_Reason(t *testing.T) {
	is := assert.New(t)

	is.Equal("OK", httpvalue.StatusOK.Reason())
	is.Equal("NotFound", httpvalue.StatusNotFound.Reason())
	is.Equal("Interna Server Error", httpvalue.StatusInternalServerError.Reason())
	is.Equal("Moved Permanently", httpvalue.StatusMovedPermanently.Reason())
}

func TestMethod_Parse(t *testing.T) {
	is := assert.New(t)

	is.Equal(httpvalue.MethodGet, httpvalue.ParseMethod("get"))
	is.Equal(httpvalue.MethodHead, httpvalue.ParseMethod("HEAD"))
	is.True(httpvalue.ParseMethod("head").IsHead())
	is.Equal("PATCH", httpvalue.ParseMethod("PATCH").String())
}

func TestVersion_Parse(t *testing.T) {
	is := assert.New(t)

	is.Equal(httpvalue.Version11, httpvalue.ParseVersion("HTTP/1.1"))
	is.Equal(httpvalue.Version10, httpvalue.ParseVersion("HTTP/1.0"))
	is.Equal(httpvalue.Version10, httpvalue.ParseVersion("garbage"))
	is.Equal("HTTP/1.0", httpvalue.Version10.String())
}
