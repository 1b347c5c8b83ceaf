package simulator

import "github.com/gabriel-vasile/mimetype"

// MimeTypes is the fixed extension-to-MIME table used for asset responses.
// It is also baked into the synthesized asset-store script; paths with other
// extensions fall back to content sniffing and finally to
// application/octet-stream.
func MimeTypes() map[string]string {
	return map[string]string{
		".css":   "text/css; charset=utf-8",
		".gif":   "image/gif",
		".htm":   "text/html; charset=utf-8",
		".html":  "text/html; charset=utf-8",
		".ico":   "image/x-icon",
		".jpeg":  "image/jpeg",
		".jpg":   "image/jpeg",
		".js":    "text/javascript; charset=utf-8",
		".json":  "application/json",
		".map":   "application/json",
		".mjs":   "text/javascript; charset=utf-8",
		".otf":   "font/otf",
		".pdf":   "application/pdf",
		".png":   "image/png",
		".svg":   "image/svg+xml",
		".ttf":   "font/ttf",
		".txt":   "text/plain; charset=utf-8",
		".wasm":  "application/wasm",
		".webp":  "image/webp",
		".woff":  "font/woff",
		".woff2": "font/woff2",
		".xml":   "application/xml",
	}
}

// sniffContentType detects a MIME type from file content, used for site
// files whose extension is not in the fixed table.
func sniffContentType(data []byte) string {
	return mimetype.Detect(data).String()
}
