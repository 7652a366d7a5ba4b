package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlan_Combined(t *testing.T) {
	q := Simple("report")
	opts := SearchOptions{FileTypes: []FileType{FileTypeDoc}}
	assert.Equal(t, ModeCombined, Plan(q, opts))
}

func TestPlan_FileTypeOnly(t *testing.T) {
	q := Simple("")
	opts := SearchOptions{FileTypes: []FileType{FileTypeDoc}}
	assert.Equal(t, ModeFileType, Plan(q, opts))
}

func TestPlan_FileExtOnly(t *testing.T) {
	q := Simple("")
	opts := SearchOptions{FileExtensions: []string{"pdf"}}
	assert.Equal(t, ModeFileExt, Plan(q, opts))
}

func TestPlan_Wildcard(t *testing.T) {
	assert.Equal(t, ModeWildcard, Plan(Wildcard("*.tar.gz"), SearchOptions{}))
}

func TestPlan_Boolean(t *testing.T) {
	assert.Equal(t, ModeBoolean, Plan(Boolean(BooleanAND, []string{"a", "b"}), SearchOptions{}))
}

func TestPlan_Pinyin(t *testing.T) {
	opts := SearchOptions{PinyinEnabled: true}
	assert.Equal(t, ModePinyin, Plan(Simple("nihao"), opts))
}

func TestPlan_PinyinAcronym(t *testing.T) {
	opts := SearchOptions{PinyinAcronymEnabled: true}
	assert.Equal(t, ModePinyinAcronym, Plan(Simple("nh"), opts))
}

func TestPlan_BothEnabledInvalidFallsBackToSimple(t *testing.T) {
	opts := SearchOptions{PinyinEnabled: true, PinyinAcronymEnabled: true}
	assert.Equal(t, ModeSimple, Plan(Simple("你好"), opts))
}

func TestPlan_DefaultSimple(t *testing.T) {
	assert.Equal(t, ModeSimple, Plan(Simple("report"), SearchOptions{}))
}
