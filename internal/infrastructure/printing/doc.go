// Package printing composes multi-page PDF documents from template fragments.
//
// This package contains:
// - Document, which owns page geometry, the ordered pages and the render pass
// - Page and BasePage, the three-phase page contract and the cursor-based
//   block primitive every higher-level drawing helper is built on
// - ItemList, which paginates fixed-height rows and spawns continuation pages
// - Canvas and FpdfCanvas, the drawing surface backed by go-pdf/fpdf
// - TemplateEngine, which turns named templates into cell markup
// - ArtifactStore, the filesystem layout for generated files and previews
//
// Example usage:
//
//	doc, err := NewDocument("invoice",
//	    WithGeometry(printing.DefaultGeometry()),
//	    WithTemplateEngine(NewTemplateEngine()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	doc.Append(NewItemList(lines, hooks))
//
//	artifact, err := doc.Render(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Generated PDF: %d pages, %d bytes\n", artifact.PageCount, len(artifact.Data))
package printing
