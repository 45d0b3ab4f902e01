package pnl

import (
	"encoding/json"
	"testing"
)

func TestJsonObjectWriter(t *testing.T) {
	testCases := []struct {
		name    string
		build   func(w *jsonObjectWriter)
		want    string
		wantErr bool
	}{
		{
			name:  "empty object",
			build: func(w *jsonObjectWriter) {},
			want:  `{}`,
		},
		{
			name: "field order is kept",
			build: func(w *jsonObjectWriter) {
				w.Append("z", 1)
				w.Append("a", "hello")
			},
			want: `{"z":1,"a":"hello"}`,
		},
		{
			name: "merge keeps the merged order",
			build: func(w *jsonObjectWriter) {
				w.Append("a", 1)
				w.Merge(json.RawMessage(`{"d":4,"c":3}`))
				w.Append("b", 2)
			},
			want: `{"a":1,"d":4,"c":3,"b":2}`,
		},
		{
			name: "merge empty object",
			build: func(w *jsonObjectWriter) {
				w.Append("a", 1)
				w.Merge(json.RawMessage(`{ }`))
			},
			want: `{"a":1}`,
		},
		{
			name: "optional fields",
			build: func(w *jsonObjectWriter) {
				w.Append("a", 0) // a zero value is still added.
				w.Optional("b", "")
				w.Optional("c", Quantity{})
				w.Optional("d", "hello")
			},
			want: `{"a":0,"d":"hello"}`,
		},
		{
			name: "merge money",
			build: func(w *jsonObjectWriter) {
				w.Append("token", "BONK")
				w.Merge(SOL(1.5))
			},
			want: `{"token":"BONK","currency":"SOL","amount":"1.5"}`,
		},
		{
			name: "merge a non object",
			build: func(w *jsonObjectWriter) {
				w.Merge([]int{1, 2})
				w.Append("a", 1)
			},
			wantErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var w jsonObjectWriter
			tc.build(&w)
			got, err := w.MarshalJSON()
			if (err != nil) != tc.wantErr {
				t.Fatalf("MarshalJSON() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}
			if string(got) != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
