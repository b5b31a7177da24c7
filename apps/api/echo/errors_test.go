package echoapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/utetezi/core/defense"
)

func TestAppHTTPErrorHandlerDuplicateLecturer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/v1/defenses/lol", nil)
	rec := httptest.NewRecorder()
	ctx := echo.New().NewContext(req, rec)

	handler := newAppHTTPErrorHandler(nil, nil)
	handler(errors.Wrap(defense.ErrDuplicateLecturer, "updating defense"), ctx)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("code = %v, want %v", rec.Code, http.StatusUnprocessableEntity)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal(): %v", err)
	}
	want := map[string]interface{}{
		"errors": map[string]interface{}{"lecturer_ids": defense.ErrDuplicateLecturer.Error()},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("body = %v, want %v", got, want)
	}
}
