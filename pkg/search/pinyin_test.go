package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPinyin_ValidSequences(t *testing.T) {
	assert.True(t, IsPinyin("nihao"))
	assert.True(t, IsPinyin("pinyin"))
	assert.True(t, IsPinyin("zhongwen"))
}

func TestIsPinyin_InvalidSequences(t *testing.T) {
	assert.False(t, IsPinyin("hello"))
	assert.False(t, IsPinyin("vvv"))
	assert.False(t, IsPinyin(""))
	assert.False(t, IsPinyin("i"))
	assert.False(t, IsPinyin("ng"))
}

func TestIsPinyin_CaseAndUmlautFolding(t *testing.T) {
	assert.True(t, IsPinyin("NIHAO"))
	assert.True(t, IsPinyin("lüe"))
}

func TestIsPinyin_Idempotent(t *testing.T) {
	for _, s := range []string{"nihao", "hello", "", "zhongwen"} {
		assert.Equal(t, IsPinyin(s), IsPinyin(s))
	}
}

func TestIsPinyinAcronym(t *testing.T) {
	assert.True(t, IsPinyinAcronym("nh"))
	assert.True(t, IsPinyinAcronym("a1-b.c_d"))
	assert.False(t, IsPinyinAcronym(""))
	assert.False(t, IsPinyinAcronym("123"))
	assert.False(t, IsPinyinAcronym("你好"))
}
