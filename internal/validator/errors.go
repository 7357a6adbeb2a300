package validator

import "strings"

// Errors は画面に並べて出す入力エラーの一覧。
type Errors []string

func (e Errors) Error() string {
	return strings.Join(e, "; ")
}

func (e *Errors) Add(msg string) {
	*e = append(*e, msg)
}

// Requireは空白だけの値もエラーにする
func (e *Errors) Require(value string, msg string) bool {
	if strings.TrimSpace(value) == "" {
		e.Add(msg)
		return false
	}
	return true
}

// Errは1件もなければnil
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
