package handlers

import (
	"fmt"
	"net/http"
	"strings"
)

// SubmitRequest accepts a print request from the form. A request must carry
// either a link to a model or a printable file name; files must be .stl or
// .zip. Nothing is stored here, the desk picks requests up out of band.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	if !requestHasPrintJob(r.PostForm.Get("link"), r.PostForm.Get("files")) {
		http.Redirect(w, r, "/error-no-print-attached", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<h1>Request received</h1><p>Your print request is in the queue.</p>`)
}

// Failure explains a rejected print request
func (h *Handler) Failure(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<h1>No print attached</h1><p>Attach an .stl or .zip file, or a link to a model.</p>`)
}

// requestHasPrintJob reports whether a submission carries a usable print:
// a non-empty link, or a file name with an allowed suffix
func requestHasPrintJob(link, fileName string) bool {
	if link != "" {
		return true
	}
	if fileName == "" {
		return false
	}
	return allowedFileName(fileName)
}

// allowedFileName accepts only .stl and .zip files
func allowedFileName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".stl") || strings.HasSuffix(lower, ".zip")
}
