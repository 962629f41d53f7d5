package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONArray_Scan(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    JSONArray
		wantErr bool
	}{
		{name: "Bytes", value: []byte(`["a","b"]`), want: JSONArray{"a", "b"}},
		{name: "String", value: `["c"]`, want: JSONArray{"c"}},
		{name: "Null", value: nil, want: nil},
		{name: "Unsupported type", value: int64(7), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got JSONArray
			err := got.Scan(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
