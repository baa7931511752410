package handler

import (
	"net/http"
)

// screenResponse はルートガードを通過した画面の情報。
type screenResponse struct {
	Path  string `json:"path"`
	State string `json:"state"`
}

// ScreenHandler はUIシェルが遷移前に問い合わせる画面ルートのハンドラー。
// リダイレクト判定はルートガードミドルウェアが行い、ここには表示してよい画面だけが届く。
type ScreenHandler struct {
	sessions SessionStateSource
}

// NewScreenHandler はScreenHandlerを生成する。
func NewScreenHandler(sessions SessionStateSource) *ScreenHandler {
	return &ScreenHandler{sessions: sessions}
}

// Show は画面パスと現在の認証状態を返す。
func (h *ScreenHandler) Show(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, screenResponse{
		Path:  r.URL.Path,
		State: h.sessions.State().String(),
	})
}
