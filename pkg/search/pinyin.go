package search

import "strings"

// pinyinSyllables is the closed table of toneless Hanyu Pinyin syllables
// (including the integrated zero-initial forms yi/wu/yu/yue/yuan and the
// retroflex/sibilant syllables zhi/chi/shi/ri/zi/ci/si), stored with ü
// already folded to v. Longest entry is 6 characters ("zhuang").
var pinyinSyllables = buildSyllableSet([]string{
	// zero-initial
	"a", "o", "e", "ai", "ei", "ao", "ou", "an", "en", "ang", "eng", "er",
	"yi", "ya", "ye", "yao", "you", "yan", "yin", "yang", "ying", "yong",
	"yu", "yue", "yuan", "yun",
	"wu", "wa", "wo", "wai", "wei", "wan", "wen", "wang", "weng",

	// b
	"ba", "bo", "bai", "bei", "bao", "ban", "ben", "bang", "beng",
	"bi", "bie", "biao", "bian", "bin", "bing", "bu",
	// p
	"pa", "po", "pai", "pei", "pao", "pou", "pan", "pen", "pang", "peng",
	"pi", "pie", "piao", "pian", "pin", "ping", "pu",
	// m
	"ma", "mo", "me", "mai", "mei", "mao", "mou", "man", "men", "mang", "meng",
	"mi", "mie", "miao", "miu", "mian", "min", "ming", "mu",
	// f
	"fa", "fo", "fei", "fou", "fan", "fen", "fang", "feng", "fu",
	// d
	"da", "de", "dai", "dei", "dao", "dou", "dan", "den", "dang", "deng", "dong",
	"di", "die", "diao", "diu", "dian", "ding", "du", "duo", "dui", "duan", "dun",
	// t
	"ta", "te", "tai", "tei", "tao", "tou", "tan", "tang", "teng", "tong",
	"ti", "tie", "tiao", "tian", "ting", "tu", "tuo", "tui", "tuan", "tun",
	// n
	"na", "ne", "nai", "nei", "nao", "nou", "nan", "nen", "nang", "neng", "nong",
	"ni", "nie", "niao", "niu", "nian", "nin", "niang", "ning",
	"nu", "nuo", "nuan", "nun", "nv", "nve",
	// l
	"la", "le", "lai", "lei", "lao", "lou", "lan", "lang", "leng", "long",
	"li", "lia", "lie", "liao", "liu", "lian", "lin", "liang", "ling",
	"lu", "luo", "luan", "lun", "lv", "lve",
	// g
	"ga", "ge", "gai", "gei", "gao", "gou", "gan", "gen", "gang", "geng", "gong",
	"gu", "gua", "guo", "guai", "gui", "guan", "gun", "guang",
	// k
	"ka", "ke", "kai", "kei", "kao", "kou", "kan", "ken", "kang", "keng", "kong",
	"ku", "kua", "kuo", "kuai", "kui", "kuan", "kun", "kuang",
	// h
	"ha", "he", "hai", "hei", "hao", "hou", "han", "hen", "hang", "heng", "hong",
	"hu", "hua", "huo", "huai", "hui", "huan", "hun", "huang",
	// j
	"ji", "jia", "jie", "jiao", "jiu", "jian", "jin", "jiang", "jing", "jiong",
	"ju", "jue", "juan", "jun",
	// q
	"qi", "qia", "qie", "qiao", "qiu", "qian", "qin", "qiang", "qing", "qiong",
	"qu", "que", "quan", "qun",
	// x
	"xi", "xia", "xie", "xiao", "xiu", "xian", "xin", "xiang", "xing", "xiong",
	"xu", "xue", "xuan", "xun",
	// zh
	"zha", "zhe", "zhi", "zhai", "zhei", "zhao", "zhou", "zhan", "zhen",
	"zhang", "zheng", "zhong",
	"zhu", "zhua", "zhuo", "zhuai", "zhui", "zhuan", "zhun", "zhuang",
	// ch
	"cha", "che", "chi", "chai", "chao", "chou", "chan", "chen",
	"chang", "cheng", "chong",
	"chu", "chua", "chuo", "chuai", "chui", "chuan", "chun", "chuang",
	// sh
	"sha", "she", "shi", "shai", "shei", "shao", "shou", "shan", "shen",
	"shang", "sheng",
	"shu", "shua", "shuo", "shuai", "shui", "shuan", "shun", "shuang",
	// r
	"re", "ri", "rao", "rou", "ran", "ren", "rang", "reng", "rong",
	"ru", "rua", "ruo", "rui", "ruan", "run",
	// z
	"za", "ze", "zi", "zai", "zei", "zao", "zou", "zan", "zen", "zang", "zeng", "zong",
	"zu", "zuo", "zui", "zuan", "zun",
	// c
	"ca", "ce", "ci", "cai", "cao", "cou", "can", "cen", "cang", "ceng", "cong",
	"cu", "cuo", "cui", "cuan", "cun",
	// s
	"sa", "se", "si", "sai", "sao", "sou", "san", "sen", "sang", "seng", "song",
	"su", "suo", "sui", "suan", "sun",
})

const maxSyllableLen = 6

func buildSyllableSet(entries []string) map[string]bool {
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e] = true
	}
	return set
}

// standaloneRejected are finals that the original rejects as a complete
// keyword on their own even though they participate in longer syllables.
var standaloneRejected = map[string]bool{"i": true, "u": true, "v": true}

// IsPinyin reports whether s, after lowercasing and folding ü to v, is a
// complete concatenation of syllables from the closed table. It is a
// total function: idempotent, and false for any input that cannot be
// fully segmented.
func IsPinyin(s string) bool {
	if s == "" {
		return false
	}
	folded := foldPinyin(s)
	if standaloneRejected[folded] {
		return false
	}
	if hasTripleRepeat(folded) {
		return false
	}
	return segmentPinyin(folded)
}

func foldPinyin(s string) string {
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "ü", "v")
}

func hasTripleRepeat(s string) bool {
	runs := []rune(s)
	for i := 0; i+2 < len(runs); i++ {
		if runs[i] == runs[i+1] && runs[i+1] == runs[i+2] {
			return true
		}
	}
	return false
}

// segmentPinyin tries the longest remaining syllable first (up to
// maxSyllableLen), recursing on the remainder; the whole string must
// consume for a match.
func segmentPinyin(s string) bool {
	if s == "" {
		return true
	}
	limit := maxSyllableLen
	if len(s) < limit {
		limit = len(s)
	}
	for n := limit; n >= 1; n-- {
		head, rest := s[:n], s[n:]
		if pinyinSyllables[head] && segmentPinyin(rest) {
			return true
		}
	}
	return false
}

// IsPinyinAcronym reports whether s contains at least one ASCII letter
// and consists only of letters, digits, underscore, hyphen, and dot,
// with no CJK characters (the latter is implied by ASCII-only runes).
func IsPinyinAcronym(s string) bool {
	if s == "" {
		return false
	}
	hasLetter := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return hasLetter
}
