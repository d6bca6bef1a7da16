package domain

import "strings"

// resourceTypeNames maps provider type keys to their display names.
var resourceTypeNames = map[string]string{
	"pikpak": "Pikpak",
	"xunlei": "迅雷云盘",
	"baidu":  "百度云盘",
	"magnet": "磁力链接",
	"other":  "其它",
	"others": "其它",
	"tianyi": "天翼云盘",
	"115":    "115网盘",
	"quark":  "夸克网盘",
	"aliyun": "阿里云盘",
}

// DisplayName returns the display name for a provider type key. Unknown
// keys are rendered upper-cased rather than dropped.
func DisplayName(resourceType string) string {
	if name, ok := resourceTypeNames[strings.ToLower(resourceType)]; ok {
		return name
	}
	return strings.ToUpper(resourceType)
}

// QuickSearchEntry pairs a provider type key with its menu label.
type QuickSearchEntry struct {
	Label string
	Type  string
}

// QuickSearchMenu lists the providers offered on the quick-search screen,
// in menu order.
var QuickSearchMenu = []QuickSearchEntry{
	{"115网盘", "115"},
	{"阿里云盘", "aliyun"},
	{"百度云盘", "baidu"},
	{"迅雷云盘", "xunlei"},
	{"夸克网盘", "quark"},
	{"Pikpak", "pikpak"},
	{"天翼云盘", "tianyi"},
	{"磁力链接", "magnet"},
}
