package handlers

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
)

func TestCustomBindingValidators(t *testing.T) {
	RegisterValidators()

	type payload struct {
		Cron   string `binding:"omitempty,cron"`
		Action string `binding:"omitempty,permaction"`
	}

	cases := []struct {
		name    string
		in      payload
		wantErr bool
	}{
		{"valid cron", payload{Cron: "0 2 * * *"}, false},
		{"bad cron", payload{Cron: "not a cron"}, true},
		{"valid action", payload{Action: "read"}, false},
		{"unknown action", payload{Action: "truncate"}, true},
	}
	for _, tc := range cases {
		err := binding.Validator.ValidateStruct(&tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: validate error = %v", tc.name, err)
		}
	}
}
