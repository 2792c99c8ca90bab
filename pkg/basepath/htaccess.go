package basepath

import (
	"fmt"
	"strings"
)

/*
Htaccess returns Apache rewrite rules that serve existing files as-is and
send every other request under base to its index.html.
*/
func Htaccess(base string) string {
	base = Normalize(base)
	b := strings.Builder{}

	b.WriteString("Options -MultiViews\n")
	b.WriteString("RewriteEngine On\n")
	fmt.Fprintf(&b, "RewriteBase %s\n", base)
	b.WriteString("RewriteRule ^index\\.html$ - [L]\n")
	b.WriteString("RewriteCond %{REQUEST_FILENAME} !-f\n")
	b.WriteString("RewriteCond %{REQUEST_FILENAME} !-d\n")
	fmt.Fprintf(&b, "RewriteRule . %sindex.html [L]\n", base)
	b.WriteString("\n")
	b.WriteString("<IfModule mod_headers.c>\n")
	b.WriteString("  <FilesMatch \"index\\.html$\">\n")
	b.WriteString("    Header set Cache-Control \"no-cache\"\n")
	b.WriteString("  </FilesMatch>\n")
	b.WriteString("</IfModule>\n")

	return b.String()
}
