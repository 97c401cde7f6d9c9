package catalog

// DefaultEntries is the built-in catalog shipped with the viewer.
var DefaultEntries = []Entry{
	{
		Name:        "App Store Changelog",
		FolderID:    "app-store-changelog",
		Description: "Generate App Store release notes from git history with user-focused summaries.",
		References: []ReferenceLink{
			{Title: "Release notes guidelines", RelativePath: "references/release-notes-guidelines.md"},
		},
	},
	{
		Name:        "iOS Debugger Agent",
		FolderID:    "ios-debugger-agent",
		Description: "Build, run, and debug iOS apps on simulators with UI interaction and log capture.",
	},
	{
		Name:        "Swift Concurrency Expert",
		FolderID:    "swift-concurrency-expert",
		Description: "Review and remediate Swift 6.2+ concurrency issues with actor isolation and Sendable safety.",
		References: []ReferenceLink{
			{Title: "Swift 6.2 concurrency", RelativePath: "references/swift-6-2-concurrency.md"},
			{Title: "SwiftUI concurrency tour", RelativePath: "references/swiftui-concurrency-tour-wwdc.md"},
		},
	},
	{
		Name:        "SwiftUI Liquid Glass",
		FolderID:    "swiftui-liquid-glass",
		Description: "Adopt and review Liquid Glass APIs in SwiftUI with correct usage patterns and fallbacks.",
		References: []ReferenceLink{
			{Title: "Liquid Glass reference", RelativePath: "references/liquid-glass.md"},
		},
	},
	{
		Name:        "SwiftUI View Refactor",
		FolderID:    "swiftui-view-refactor",
		Description: "Refactor SwiftUI views for consistent structure, dependency injection, and Observation usage.",
		References: []ReferenceLink{
			{Title: "MV patterns", RelativePath: "references/mv-patterns.md"},
		},
	},
	{
		Name:        "SwiftUI Performance Audit",
		FolderID:    "swiftui-performance-audit",
		Description: "Code-first review for SwiftUI performance pitfalls with targeted fixes and profiling guidance.",
		References: []ReferenceLink{
			{Title: "Optimizing with Instruments", RelativePath: "references/optimizing-swiftui-performance-instruments.md"},
			{Title: "Understanding SwiftUI performance", RelativePath: "references/understanding-improving-swiftui-performance.md"},
			{Title: "Understanding hangs", RelativePath: "references/understanding-hangs-in-your-app.md"},
			{Title: "Demystify SwiftUI performance", RelativePath: "references/demystify-swiftui-performance-wwdc23.md"},
		},
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultEntries)
	if err != nil {
		panic(err)
	}
	return c
}
