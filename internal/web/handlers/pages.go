package handlers

import (
	"fmt"
	"html"
	"net/http"

	"github.com/makerforge/printdesk/internal/printer"
)

// Home shows the print-request form for members and a welcome page for
// everyone else
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	user, ok := h.sessions.CurrentUser(r.Context(), r)
	if !ok {
		fmt.Fprint(w, `<h1>Welcome to the print desk</h1><p><a href="/login">Log in</a> to request a print.</p>`)
		return
	}

	fmt.Fprintf(w, `<h1>Hello, %s</h1>
<form action="/request" method="post">
<input type="text" name="link" placeholder="Link to model">
<input type="text" name="files" placeholder="File name (.stl or .zip)">
<button type="submit">Request print</button>
</form>
<p><a href="/status">Printer status</a> | <a href="/logout">Log out</a></p>`,
		html.EscapeString(user.DisplayName))
}

// Form redirects to the home page, which renders the request form for
// authenticated members
func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Status reports the current state of each configured printer
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	for _, name := range h.printerSet {
		state, err := h.printers.JobState(r.Context(), name)
		if err != nil {
			// An unreachable printer reads as turned off
			state = printer.StateUnknown
		}
		fmt.Fprintf(w, "%s: %s\n", name, printer.Message(state))
	}
}

// Queue shows the print queue page
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<h1>Print queue</h1><p>The queue is managed at the desk for now.</p>`)
}

// Members lists the provisioned members
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		http.Error(w, "Failed to list members", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<h1>Members</h1><ul>")
	for _, u := range users {
		fmt.Fprintf(w, "<li>%s</li>", html.EscapeString(u.DisplayName))
	}
	fmt.Fprint(w, "</ul>")
}

// Health is the unauthenticated liveness endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
