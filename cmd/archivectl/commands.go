package main

// setupCommands initializes all commands and their relationships
func setupCommands() {
	typesCmd.AddCommand(typesImportCmd)
	typesCmd.AddCommand(typesParseCmd)
	rootCmd.AddCommand(typesCmd)

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(verifyCmd)
}
