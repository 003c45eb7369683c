package extraction

// BuildPDF exposes the test PDF builder to the external test package.
var BuildPDF = buildPDF
