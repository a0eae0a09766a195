package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAppRegistrationGuide explains how to create the Reddit script app
// whose credentials the login command asks for
func ShowAppRegistrationGuide(w io.Writer) {
	line := strings.Repeat("=", 72)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "REDDIT API CREDENTIALS")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "mineralscraper talks to Reddit's OAuth API as a \"script\" app.")
	fmt.Fprintln(w, "Without credentials it falls back to the public JSON endpoints,")
	fmt.Fprintln(w, "which are slower and more aggressively rate limited.")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 1: Create the app")
	fmt.Fprintln(w, "   - Log in and open https://www.reddit.com/prefs/apps")
	fmt.Fprintln(w, "   - Click \"create another app...\"")
	fmt.Fprintln(w, "   - Pick the type \"script\"")
	fmt.Fprintln(w, "   - Use http://localhost:8080 as the redirect uri (it is never called)")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 2: Copy the values")
	fmt.Fprintln(w, "   ┌───────────────┬──────────────────────────────────────────────┐")
	fmt.Fprintln(w, "   │ Value         │ Where to find it                             │")
	fmt.Fprintln(w, "   ├───────────────┼──────────────────────────────────────────────┤")
	fmt.Fprintln(w, "   │ client ID     │ Under \"personal use script\", ~22 chars       │")
	fmt.Fprintln(w, "   │ client secret │ The \"secret\" field                           │")
	fmt.Fprintln(w, "   │ username      │ Optional, the account listed as developer    │")
	fmt.Fprintln(w, "   │ password      │ Optional, that account's password            │")
	fmt.Fprintln(w, "   └───────────────┴──────────────────────────────────────────────┘")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "TIPS:")
	fmt.Fprintln(w, "   • With username and password the app acts as that user (600 req/10 min)")
	fmt.Fprintln(w, "   • Without them it uses app-only access, which is enough for searching")
	fmt.Fprintln(w, "   • Reddit asks for a descriptive user agent including your username")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Credentials are kept in the system keychain, or in an encrypted file")
	fmt.Fprintln(w, "when no keychain is available.")
	fmt.Fprintln(w, line)
}
