package routes

import (
	"fmt"
	"net/http"
)

const privacyPolicyHTML = `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>SwipeBite Privacy Policy</title>
</head>
<body>
	<h1>Privacy Policy</h1>
	<p>SwipeBite stores your name, email and optional avatar so the people in your swipe sessions can see who joined.</p>
	<p>Likes, dislikes and matches are kept with the session they were made in and are only shown to its participants.</p>
	<p>Avatar images are uploaded directly to our storage bucket through short-lived links.</p>
</body>
</html>
`

// PrivacyPolicyHandler serves the Privacy Policy content
func PrivacyPolicyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, privacyPolicyHTML)
}
