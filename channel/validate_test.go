package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChannel() Channel {
	return Channel{
		ID:      "lab-1",
		Name:    "Lab Feed",
		Enabled: true,
		Source:  HTTPSource{Path: "/lab", Method: MethodPost},
		Destinations: []DestinationConfig{
			TCPDestination{Host: "10.0.0.5", Port: 6000, UseMLLP: Bool(true)},
		},
	}
}

func fields(t *testing.T, err error) []string {
	t.Helper()
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	out := make([]string, len(verrs))
	for i, v := range verrs {
		out[i] = v.Field
	}
	return out
}

func TestValidateAcceptsValidChannel(t *testing.T) {
	assert.NoError(t, Validate(validChannel(), ValidateOptions{RequireID: true}))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Channel)
		opts   ValidateOptions
		field  string
	}{
		{
			name:   "blank name",
			mutate: func(c *Channel) { c.Name = "   " },
			field:  "name",
		},
		{
			name:   "missing id on create",
			mutate: func(c *Channel) { c.ID = "" },
			opts:   ValidateOptions{RequireID: true},
			field:  "id",
		},
		{
			name:   "no destinations",
			mutate: func(c *Channel) { c.Destinations = nil },
			field:  "destinations",
		},
		{
			name:   "bad source method",
			mutate: func(c *Channel) { c.Source = HTTPSource{Path: "/", Method: "PATCH"} },
			field:  "source.method",
		},
		{
			name: "port out of range",
			mutate: func(c *Channel) {
				c.Destinations = []DestinationConfig{TCPDestination{Host: "h", Port: 70000}}
			},
			field: "destinations[0].port",
		},
		{
			name:   "missing source",
			mutate: func(c *Channel) { c.Source = nil },
			field:  "source",
		},
		{
			name: "blank header name",
			mutate: func(c *Channel) {
				c.Destinations = []DestinationConfig{HTTPDestination{URL: "u", Headers: map[string]string{" ": "x"}}}
			},
			field: "destinations[0].headers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := validChannel()
			tt.mutate(&ch)
			err := Validate(ch, tt.opts)
			require.Error(t, err)
			assert.Contains(t, fields(t, err), tt.field)
		})
	}
}

func TestValidateDoesNotRequireIDOnUpdate(t *testing.T) {
	ch := validChannel()
	ch.ID = ""
	assert.NoError(t, Validate(ch, ValidateOptions{}))
}

func TestValidateOptionalDestinationMethod(t *testing.T) {
	ch := validChannel()
	ch.Destinations = []DestinationConfig{HTTPDestination{URL: "http://x"}}
	assert.NoError(t, Validate(ch, ValidateOptions{}))
}

func TestValidationMessages(t *testing.T) {
	ch := validChannel()
	ch.Destinations = []DestinationConfig{}
	err := Validate(ch, ValidateOptions{})

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "At least one destination is required.", verrs[0].Message)
	assert.Equal(t, "destinations: At least one destination is required.", err.Error())
}
