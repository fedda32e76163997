// Package toolexec runs the external analysis tools (foldseek, diamond) as
// child processes.
//
// Argument lists are configured as templates whose placeholders ({mode},
// {threads}, {database_path}, {query_path}, {output_path}, {format_spec},
// {tmp_dir}, {max_accept}) are substituted per category. The executor captures
// standard output and a bounded prefix of standard error, and classifies a
// nonzero exit as services.ErrExternalTool. Callers decide whether the context
// they pass may cancel a running tool.
package toolexec
