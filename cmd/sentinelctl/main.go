// Command sentinelctl é a ferramenta de operação do Sentinel: migrações,
// kill switch, execução manual de ciclos e verificações de integridade.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
