/*
Package compiler wires the stages together.

Process of compilation

	Program Text ->
		lex ->
	Tokens ->
		parse (+ sym) ->
	Abstract Syntax Tree (ast) ->
		gen ->
	Three-Address Code (tac) ->
		analyze ->
	Checked Program ->
		vm ->
	Memory

Three-address code also has a text form (tac.ParseText, tac.Program.AppendText),
so the vm can run programs written or edited by hand.
*/
package compiler
