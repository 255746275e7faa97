package catalog

var staticPages = []string{
	"/",
	"/about",
	"/contact",
	"/help",
	"/privacy",
	"/terms",
	"/all-tools",
	"/toolkit/pdf",
	"/toolkit/image",
	"/toolkit/media",
	"/toolkit/government",
	"/toolkit/developer",
}

var toolSlugs = []string{
	// PDF
	"pdf-merger", "pdf-splitter", "pdf-compressor", "pdf-to-word", "word-to-pdf",
	"pdf-to-excel", "excel-to-pdf", "pdf-to-powerpoint", "powerpoint-to-pdf",
	"pdf-to-image", "image-to-pdf", "pdf-unlock", "pdf-lock", "pdf-rotate",
	"pdf-watermark", "pdf-page-extractor", "pdf-page-numberer", "pdf-text-extract",
	"text-to-pdf", "pdf-metadata", "pdf-ocr", "pdf-sign", "pdf-repair",
	"pdf-organize", "pdf-bookmark",

	// Image
	"image-resizer", "image-compressor", "image-converter", "bg-remover",
	"image-cropper", "image-rotator", "image-flipper", "image-filter",
	"image-enhance", "image-upscale", "watermark-add", "watermark-remover",
	"image-blur", "image-sharpen", "image-border", "image-metadata",
	"meme-generator", "image-colorizer", "image-merge", "image-split",

	// Audio / video
	"audio-converter", "video-converter", "audio-trimmer", "video-trimmer",
	"audio-merger", "video-merger", "audio-extractor", "video-compressor",
	"audio-compressor", "volume-changer", "speed-changer", "audio-normalizer",
	"noise-reducer", "vocal-remover", "audio-reverser", "pitch-changer",
	"video-resizer", "video-rotator", "video-to-gif", "gif-to-video",

	// Government
	"pan-validator", "gst-validator", "aadhaar-validator", "aadhaar-masker",
	"voter-id-extractor", "income-certificate", "caste-certificate",
	"birth-certificate", "death-certificate", "ration-card-status",
	"passport-photo", "rent-agreement", "affidavit-generator",
	"police-verification", "gazette-formatter",

	// Developer
	"json-formatter", "xml-formatter", "csv-to-json", "json-to-csv",
	"base64-encoder", "url-encoder", "hash-generator", "password-generator",
	"qr-generator", "barcode-generator", "color-picker", "lorem-ipsum",
	"regex-tester", "timestamp-converter", "unit-converter",
	"markdown-to-html", "html-to-pdf", "css-minifier", "js-minifier",
	"image-to-base64", "url-shortener", "meta-tag-generator",
	"favicon-generator", "logo-generator", "color-palette-generator",
	"text-to-speech", "speech-to-text", "unicode-converter",
}
