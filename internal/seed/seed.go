// Package seed provides the built-in default tool list installed when a
// registry's store is empty at startup (spec §6's "Default seeding").
// Seeding is specified as an out-of-scope collaborator: the core merely
// calls Tools() and persists whatever it returns.
package seed

import "github.com/maric-labs/registrytools/internal/model"

// Tools returns the built-in default catalog: enough real-world tools to
// satisfy scenario S1 (>= 20 tools, categories including github/aws/slack).
func Tools() []model.Tool {
	def := func(name, description, category string, tags ...string) model.Tool {
		return model.Tool{
			Name:         name,
			Description:  description,
			Category:     category,
			Tags:         tags,
			DeferLoading: true,
		}
	}

	return []model.Tool{
		def("github.create_pr", "Create a pull request on a GitHub repository", "github", "github", "pr", "vcs"),
		def("github.merge_pr", "Merge an approved pull request", "github", "github", "pr", "vcs"),
		def("github.list_issues", "List open issues on a repository", "github", "github", "issues"),
		def("github.create_issue", "File a new issue on a repository", "github", "github", "issues"),
		def("github.add_comment", "Add a comment to an issue or pull request", "github", "github", "comments"),
		def("github.search_code", "Search code across repositories", "github", "github", "search"),

		def("aws.s3_put_object", "Upload an object to an S3 bucket", "aws", "aws", "s3", "storage"),
		def("aws.s3_get_object", "Download an object from an S3 bucket", "aws", "aws", "s3", "storage"),
		def("aws.ec2_describe_instances", "List running EC2 instances", "aws", "aws", "ec2", "compute"),
		def("aws.lambda_invoke", "Invoke an AWS Lambda function", "aws", "aws", "lambda", "compute"),
		def("aws.cloudwatch_get_metrics", "Fetch CloudWatch metric data points", "aws", "aws", "cloudwatch", "monitoring"),
		def("aws.iam_list_roles", "List IAM roles in the account", "aws", "aws", "iam", "security"),

		def("slack.post_message", "Post a message to a Slack channel", "slack", "slack", "messaging"),
		def("slack.list_channels", "List channels visible to the bot", "slack", "slack", "channels"),
		def("slack.upload_file", "Upload a file to a Slack channel", "slack", "slack", "files"),
		def("slack.add_reaction", "Add an emoji reaction to a message", "slack", "slack", "reactions"),
		def("slack.search_messages", "Search message history", "slack", "slack", "search"),

		def("jira.create_ticket", "Create a ticket in a Jira project", "jira", "jira", "tickets"),
		def("jira.transition_ticket", "Move a ticket to a new status", "jira", "jira", "tickets"),
		def("jira.search_tickets", "Run a JQL search", "jira", "jira", "search"),

		def("util.echo", "Echo text back unchanged", "util", "util", "debug"),
		def("util.current_time", "Return the current server time", "util", "util", "time"),
		def("util.uuid_generate", "Generate a random UUID", "util", "util", "id"),
	}
}
