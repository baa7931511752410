// Package course はコース一覧・教材・動画埋め込みURL・記事プレビューを提供する。
package course

import "strings"

// EmbedURL は動画ページのURLを埋め込みプレーヤーのURLに変換する。
// YouTube（watch?v= と youtu.be/）とVimeoに対応し、それ以外はそのまま返す。
func EmbedURL(videoURL string) string {
	switch {
	case strings.Contains(videoURL, "youtube.com"), strings.Contains(videoURL, "youtu.be"):
		id := ""
		if _, after, ok := strings.Cut(videoURL, "v="); ok {
			id = after
		} else {
			id = lastSegment(videoURL)
		}
		return "https://www.youtube.com/embed/" + trimQuery(id)
	case strings.Contains(videoURL, "vimeo.com"):
		return "https://player.vimeo.com/video/" + trimQuery(lastSegment(videoURL))
	default:
		return videoURL
	}
}

func lastSegment(u string) string {
	if i := strings.LastIndexByte(u, '/'); i >= 0 {
		return u[i+1:]
	}
	return u
}

// trimQuery は動画IDの後ろに続くクエリ（&t=10, ?si=...）を取り除く。
func trimQuery(id string) string {
	if i := strings.IndexAny(id, "&?#"); i >= 0 {
		return id[:i]
	}
	return id
}
