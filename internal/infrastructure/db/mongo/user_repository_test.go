package mongo

import (
	"reflect"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestEmailPhoneFilter_SkipsEmptyIdentifiers(t *testing.T) {
	cases := []struct {
		name   string
		email  string
		phone  string
		expect bson.M
	}{
		{
			name:   "both identifiers",
			email:  "aminata@example.sn",
			phone:  "+221771234567",
			expect: bson.M{"email": "aminata@example.sn", "phone": "+221771234567"},
		},
		{
			name:   "phone only",
			phone:  "+221771234567",
			expect: bson.M{"phone": "+221771234567"},
		},
		{
			name:   "email only",
			email:  "aminata@example.sn",
			expect: bson.M{"email": "aminata@example.sn"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := emailPhoneFilter(tc.email, tc.phone)
			if !reflect.DeepEqual(got, tc.expect) {
				t.Fatalf("expected %v, got %v", tc.expect, got)
			}
		})
	}
}
