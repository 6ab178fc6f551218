// Package noplainip содержит анализатор, запрещающий запись сырых IP-адресов в лог.
package noplainip

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

// ipFieldKeys содержит ключи полей лога, под которыми обычно пишут сырой IP-адрес
var ipFieldKeys = map[string]struct{}{
	`"ip"`:          {},
	`"client_ip"`:   {},
	`"remote_addr"`: {},
	`"remote_ip"`:   {},
}

// NoPlainIPAnalyzer представляет анализатор, который запрещает поля zap
// с ключами IP-адресов: в лог должен попадать только хеш адреса.
var NoPlainIPAnalyzer = &analysis.Analyzer{
	Name: "noplainip",
	Doc:  "запрещает запись сырых IP-адресов в структурированный лог",
	Run:  run,
}

// run выполняет анализ AST для поиска zap-полей с ключами IP-адресов.
func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(node ast.Node) bool {
			callExpr, ok := node.(*ast.CallExpr)
			if !ok || len(callExpr.Args) == 0 {
				return true
			}

			selExpr, ok := callExpr.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			// Интересуют только конструкторы полей из пакета zap
			ident, ok := selExpr.X.(*ast.Ident)
			if !ok {
				return true
			}
			obj := pass.TypesInfo.Uses[ident]
			pkg, ok := obj.(*types.PkgName)
			if !ok || pkg.Imported().Path() != "go.uber.org/zap" {
				return true
			}

			key, ok := callExpr.Args[0].(*ast.BasicLit)
			if !ok {
				return true
			}
			if _, bad := ipFieldKeys[key.Value]; bad {
				pass.Reportf(callExpr.Pos(), "запись сырого IP-адреса в лог запрещена, используйте хеш")
			}

			return true
		})
	}

	return nil, nil
}
