package echoapi

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/utetezi/core"
)

func TestOrderingBind(t *testing.T) {
	tests := []struct {
		name     string
		ordering string
		want     []core.DBOrdering
	}{
		{name: "no param"},
		{name: "single field", ordering: "name", want: []core.DBOrdering{{Field: "name", Ascending: true}}},
		{
			name: "descending and multiple", ordering: "-date,start_time",
			want: []core.DBOrdering{{Field: "date", Ascending: false}, {Field: "start_time", Ascending: true}},
		},
		{
			name: "unknown fields dropped", ordering: "password_hash,id,-date",
			want: []core.DBOrdering{{Field: "date", Ascending: false}},
		},
		{name: "injection attempt dropped", ordering: "name; DROP TABLE defenses --"},
		{name: "injection appended to field dropped", ordering: "date) ; DROP TABLE defenses --"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/v1/defenses"
			if tt.ordering != "" {
				target += "?" + url.Values{"ordering": {tt.ordering}}.Encode()
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			ctx := echo.New().NewContext(req, httptest.NewRecorder())

			ord := new(Ordering)
			ord.Bind(ctx, defenseSortFields...)
			if !reflect.DeepEqual(ord.Orderings, tt.want) {
				t.Errorf("Bind() orderings = %+v, want %+v", ord.Orderings, tt.want)
			}
		})
	}
}
