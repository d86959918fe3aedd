package editor

// ExampleDiagram is the standalone buffer of a new session.
const ExampleDiagram = `graph TD
    A[Start] --> B{Is it?}
    B -->|Yes| C[OK]
    C --> D[Rethink]
    D --> B
    B ---->|No| E[End]`

// ExampleDocument is the document buffer of a new session.
const ExampleDocument = "# My Project\n" +
	"\n" +
	"## Overview\n" +
	"\n" +
	"This is a sample README with embedded mermaid diagrams.\n" +
	"\n" +
	"## Architecture\n" +
	"\n" +
	"```mermaid\n" +
	"graph TD\n" +
	"    A[Client] --> B[Server]\n" +
	"    B --> C[Database]\n" +
	"    B --> D[Cache]\n" +
	"```\n" +
	"\n" +
	"## Flow\n" +
	"\n" +
	"Here's the process flow:\n" +
	"\n" +
	"```mermaid\n" +
	"sequenceDiagram\n" +
	"    participant User\n" +
	"    participant System\n" +
	"    participant Database\n" +
	"\n" +
	"    User->>System: Request Data\n" +
	"    System->>Database: Query\n" +
	"    Database-->>System: Results\n" +
	"    System-->>User: Response\n" +
	"```\n" +
	"\n" +
	"## Conclusion\n" +
	"\n" +
	"That's how it works!"
