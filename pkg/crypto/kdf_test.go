package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testParams() PBKDF2Parameters {
	return PBKDF2Parameters{Iterations: 1000, KeyLength: 32}
}

func TestDeriveKeyPBKDF2Deterministic(t *testing.T) {
	key1, err := DeriveKeyPBKDF2([]byte("s3cr3t"), []byte("10"), testParams())
	require.NoError(t, err)
	key2, err := DeriveKeyPBKDF2([]byte("s3cr3t"), []byte("10"), testParams())
	require.NoError(t, err)

	require.True(t, bytes.Equal(key1, key2))
	require.Len(t, key1, 32)
}

func TestDeriveKeyPBKDF2DifferentInputs(t *testing.T) {
	base, err := DeriveKeyPBKDF2([]byte("s3cr3t"), []byte("10"), testParams())
	require.NoError(t, err)

	otherSalt, err := DeriveKeyPBKDF2([]byte("s3cr3t"), []byte("11"), testParams())
	require.NoError(t, err)
	require.NotEqual(t, base, otherSalt)

	otherSecret, err := DeriveKeyPBKDF2([]byte("other"), []byte("10"), testParams())
	require.NoError(t, err)
	require.NotEqual(t, base, otherSecret)
}

func TestDeriveKeyPBKDF2ValidatesInput(t *testing.T) {
	_, err := DeriveKeyPBKDF2(nil, []byte("10"), testParams())
	require.Error(t, err)

	_, err = DeriveKeyPBKDF2([]byte("secret"), nil, testParams())
	require.Error(t, err)

	bad := testParams()
	bad.KeyLength = 20
	_, err = DeriveKeyPBKDF2([]byte("secret"), []byte("10"), bad)
	require.Error(t, err)
}

func TestPBKDF2ParametersValidate(t *testing.T) {
	cases := []struct {
		name   string
		params PBKDF2Parameters
		valid  bool
	}{
		{"default", DefaultPBKDF2Params(), true},
		{"aes-128", PBKDF2Parameters{Iterations: 1, KeyLength: 16}, true},
		{"zero iterations", PBKDF2Parameters{Iterations: 0, KeyLength: 32}, false},
		{"invalid key length", PBKDF2Parameters{Iterations: 10, KeyLength: 48}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.params.Validate()
			if tc.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
