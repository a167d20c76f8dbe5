package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccessPolicyRejectsGarbage(t *testing.T) {
	_, err := NewAccessPolicy(false, []string{"not-an-ip"})
	require.Error(t, err)

	_, err = NewAccessPolicy(false, []string{"10.0.0.0/33"})
	require.Error(t, err)
}

func TestClientAllowed(t *testing.T) {
	tests := []struct {
		name   string
		allow  []string
		client string
		want   bool
	}{
		{"empty list allows everyone", nil, "203.0.113.9:1023", true},
		{"bare ip match", []string{"127.0.0.1"}, "127.0.0.1:51234", true},
		{"bare ip mismatch", []string{"127.0.0.1"}, "10.1.2.3:51234", false},
		{"cidr match", []string{"10.0.0.0/8"}, "10.200.0.1:2049", true},
		{"cidr mismatch", []string{"10.0.0.0/8"}, "192.168.1.5:2049", false},
		{"ipv6 bare", []string{"::1"}, "[::1]:1023", true},
		{"addr without port", []string{"127.0.0.1"}, "127.0.0.1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewAccessPolicy(false, tt.allow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, policy.ClientAllowed(tt.client))
		})
	}
}

func TestEvaluateDeniedClientFailsReadsToo(t *testing.T) {
	policy, err := NewAccessPolicy(false, []string{"10.0.0.0/8"})
	require.NoError(t, err)

	mount := &MountEntry{Source: "/srv", Target: "/data"}
	err = policy.Evaluate("192.168.1.5:1023", mount, OpRead)
	assert.Equal(t, ErrAccessDenied, CodeOf(err))
}

func TestEvaluateReadOnly(t *testing.T) {
	rw := &MountEntry{Source: "/srv", Target: "/data"}
	ro := &MountEntry{Source: "/srv", Target: "/data", ReadOnly: true}

	tests := []struct {
		name     string
		globalRO bool
		mount    *MountEntry
		class    OpClass
		want     ErrorCode
	}{
		{"write on rw mount", false, rw, OpWrite, errorCodeNone},
		{"read on ro mount", false, ro, OpRead, errorCodeNone},
		{"write on ro mount", false, ro, OpWrite, ErrReadOnly},
		{"write under global ro", true, rw, OpWrite, ErrReadOnly},
		{"read under global ro", true, ro, OpRead, errorCodeNone},
		{"write on synthetic dir", false, nil, OpWrite, ErrReadOnly},
		{"read on synthetic dir", false, nil, OpRead, errorCodeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy, err := NewAccessPolicy(tt.globalRO, nil)
			require.NoError(t, err)

			err = policy.Evaluate("127.0.0.1:1023", tt.mount, tt.class)
			if tt.want == errorCodeNone {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.want, CodeOf(err))
			}
		})
	}
}

// errorCodeNone marks table rows that expect success.
const errorCodeNone = ErrorCode(-1)
