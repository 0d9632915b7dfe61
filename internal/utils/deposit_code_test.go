package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDepositCode(t *testing.T) {
	tests := []struct {
		name string
		memo string
		want string
	}{
		{name: "code only", memo: "42", want: "42"},
		{name: "code after name", memo: "홍길동 42", want: "42"},
		{name: "code before name", memo: "42홍길동", want: "42"},
		{name: "same code twice", memo: "42 입금 42", want: "42"},
		{name: "two distinct codes", memo: "12 34", want: ""},
		{name: "longer digit run", memo: "1234", want: ""},
		{name: "single digit", memo: "7", want: ""},
		{name: "no digits", memo: "홍길동", want: ""},
		{name: "empty memo", memo: "", want: ""},
		{name: "code next to longer run", memo: "계좌 1234567890 코드 42", want: "42"},
		{name: "leading zero kept", memo: "입금 07", want: "07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDepositCode(tt.memo))
		})
	}
}

func TestGenerateDepositCode_AvoidsOpenCodes(t *testing.T) {
	// Leave exactly one code free; generation must land on it.
	inUse := make([]string, 0, 98)
	for i := 1; i <= 99; i++ {
		if i == 57 {
			continue
		}
		inUse = append(inUse, fmt.Sprintf("%02d", i))
	}

	code, err := GenerateDepositCode(inUse)
	assert.NoError(t, err)
	assert.Equal(t, "57", code)
}

func TestGenerateDepositCode_Format(t *testing.T) {
	code, err := GenerateDepositCode(nil)
	assert.NoError(t, err)
	assert.Len(t, code, 2)
	assert.NotEqual(t, "00", code)
}

func TestGenerateDepositCode_PoolExhausted(t *testing.T) {
	inUse := make([]string, 0, 99)
	for i := 1; i <= 99; i++ {
		inUse = append(inUse, fmt.Sprintf("%02d", i))
	}

	_, err := GenerateDepositCode(inUse)
	assert.Error(t, err)
}
